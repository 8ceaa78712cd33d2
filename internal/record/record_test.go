package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeKeepsKeyOrderAndNumberKinds(t *testing.T) {
	r, err := DecodeRecord([]byte(`{"zeta":1,"alpha":2.5,"mid":true,"name":"x","none":null}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid", "name", "none"}, r.Keys())

	v, _ := r.Get("zeta")
	assert.IsType(t, int64(0), v)
	v, _ = r.Get("alpha")
	assert.Equal(t, 2.5, v)
	v, _ = r.Get("mid")
	assert.Equal(t, true, v)
	v, ok := r.Get("none")
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestDecodeNested(t *testing.T) {
	v, err := Decode([]byte(`[{"teams":{"home":{"name":"X"}},"list":[1,2]}, 2020]`))
	require.NoError(t, err)

	arr, ok := v.([]any)
	require.True(t, ok)
	require.Len(t, arr, 2)

	first, ok := arr[0].(Record)
	require.True(t, ok)
	teams, _ := first.Get("teams")
	home, _ := teams.(Record).Get("home")
	name, _ := home.(Record).Get("name")
	assert.Equal(t, "X", name)

	list, _ := first.Get("list")
	assert.Equal(t, []any{int64(1), int64(2)}, list)
	assert.Equal(t, int64(2020), arr[1])
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	_, err := Decode([]byte(`{"a":1} {"b":2}`))
	assert.Error(t, err)
}

func TestDecodeRecordRejectsNonObject(t *testing.T) {
	_, err := DecodeRecord([]byte(`[1,2]`))
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestMarshalRoundTripKeepsOrder(t *testing.T) {
	src := `{"b":1,"a":{"y":"<v>","x":[true,null,1.5]}}`
	r := MustParse(src)

	out, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestSetDeleteRename(t *testing.T) {
	r := New(Field{"id", 1}, Field{"name", "A"}, Field{"city", "B"})

	r.Set("name", "Z")
	assert.Equal(t, []string{"id", "name", "city"}, r.Keys())

	assert.True(t, r.Rename("id", "team_id"))
	assert.Equal(t, []string{"name", "city", "team_id"}, r.Keys())
	v, _ := r.Get("team_id")
	assert.Equal(t, int64(1), v)

	_, ok := r.Delete("name")
	assert.True(t, ok)
	assert.Equal(t, []string{"city", "team_id"}, r.Keys())
	v, _ = r.Get("city")
	assert.Equal(t, "B", v)

	assert.False(t, r.Rename("missing", "other"))
}

func TestCloneIsIndependent(t *testing.T) {
	r := New(Field{"a", 1})
	c := r.Clone()
	c.Set("b", 2)
	c.Set("a", 3)

	assert.Equal(t, 1, r.Len())
	v, _ := r.Get("a")
	assert.Equal(t, int64(1), v)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(5), Normalize(int32(5)))
	assert.Equal(t, float64(1.5), Normalize(float32(1.5)))
	assert.Equal(t, "ab", Normalize([]byte("ab")))
	assert.Nil(t, Normalize((*Record)(nil)))
	assert.Equal(t, []any{int64(1), "x"}, Normalize([]any{1, "x"}))
}

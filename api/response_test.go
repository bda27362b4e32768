package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSingle(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	body := []byte(`{"result_code":0,"result_text":"ok","notes":"fine","data":{"payload":{"id":42,"name":"foo"}}}`)
	st := decodeResponse[widget](&widget{Status: "seeded"}, false, http.StatusOK, body)

	assert.True(st.Ok())
	assert.Equal("ok", st.Description)
	assert.Equal("fine", st.Notes)
	assert.Equal(http.StatusOK, st.HttpStatus)

	got, ok := st.Payload.One()
	require.True(ok)
	assert.Equal(int64(42), got.Id)
	assert.Equal("foo", got.Name)
	// Non-wire state carried by the seed survives decoding.
	assert.Equal("seeded", got.Status)
}

func TestDecodeListPreservesOrder(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	body := []byte(`{"result_code":0,"data":{"payload":[{"id":3},{"id":1},{"id":2}]}}`)
	st := decodeResponse[widget](new(widget), true, http.StatusOK, body)

	require.True(st.Ok())
	items, ok := st.Payload.Many()
	require.True(ok)
	require.Len(items, 3)
	assert.Equal(int64(3), items[0].Id)
	assert.Equal(int64(1), items[1].Id)
	assert.Equal(int64(2), items[2].Id)
}

func TestDecodeAbsentData(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no data", `{"result_code":0,"result_text":"ok"}`},
		{"empty data", `{"result_code":0,"data":{}}`},
		{"null payload", `{"result_code":0,"data":{"payload":null}}`},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			st := decodeResponse[widget](new(widget), false, http.StatusOK, []byte(v.body))
			assert.True(t, st.Ok())
			assert.True(t, st.Payload.Empty())
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		many bool
	}{
		{"not json", `<html>502 Bad Gateway</html>`, false},
		{"empty body", ``, false},
		{"truncated", `{"result_code":0,"data":{"payload":{`, false},
		{"object where list expected", `{"result_code":0,"data":{"payload":{"id":1}}}`, true},
		{"list where object expected", `{"result_code":0,"data":{"payload":[{"id":1}]}}`, false},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			st := decodeResponse[widget](new(widget), v.many, http.StatusOK, []byte(v.body))
			assert.Equal(t, CodeLocalError, st.Code)
			assert.Equal(t, descUndecodable, st.Description)
			assert.True(t, st.Payload.Empty())
			assert.Equal(t, http.StatusOK, st.HttpStatus)
		})
	}
}

func TestDecodeBusinessErrorAndWarning(t *testing.T) {
	assert := assert.New(t)

	st := decodeResponse[widget](new(widget), false, http.StatusOK,
		[]byte(`{"result_code":-210,"result_text":"app_tag_taken","notes":"tag must be unique"}`))
	assert.False(st.Ok())
	assert.False(st.Usable())
	assert.Equal(-210, st.Code)
	assert.Error(st.Err())

	st = decodeResponse[widget](new(widget), false, http.StatusOK,
		[]byte(`{"result_code":5,"result_text":"still_updating","data":{"payload":{"id":8}}}`))
	assert.False(st.Ok())
	assert.True(st.Usable())
	assert.NoError(st.Err())
	assert.False(st.cacheable())
}

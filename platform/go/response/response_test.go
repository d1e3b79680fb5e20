package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWritesEnvelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	Error(rec, http.StatusNotFound, "tenant not found")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]any{"error": "tenant not found"}, body)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "object", body: `{"companyName":"Acme"}`},
		{name: "empty", body: ``, wantErr: true},
		{name: "malformed", body: `{"companyName":`, wantErr: true},
		{name: "trailing", body: `{} {}`, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst map[string]any
			err := Decode(req, &dst)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidBody)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Acme", dst["companyName"])
		})
	}
}

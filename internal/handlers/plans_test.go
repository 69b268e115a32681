package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reputalia/creditos/internal/service/plans"
)

func Test_PlansHandler(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewPlans(plans.NewCatalog()).Handler())
	t.Cleanup(srv.Close)

	get := func(t *testing.T, path string) (int, string) {
		t.Helper()

		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck

		return resp.StatusCode, string(body)
	}

	t.Run("individual plans by default", func(t *testing.T) {
		status, body := get(t, "/")

		require.Equal(t, http.StatusOK, status)

		var listed []struct {
			ID      string `json:"id"`
			Segment string `json:"segment"`
			Credits int64  `json:"credits"`
			Price   string `json:"price"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &listed))
		require.NotEmpty(t, listed)
		for _, p := range listed {
			require.Equal(t, "individual", p.Segment)
		}
		require.Equal(t, "basico", listed[0].ID)
		require.Equal(t, "49.90", listed[0].Price)
	})

	t.Run("agency plans", func(t *testing.T) {
		status, body := get(t, "/?segment=agency")

		require.Equal(t, http.StatusOK, status)

		var listed []struct {
			Segment string `json:"segment"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &listed))
		require.NotEmpty(t, listed)
		for _, p := range listed {
			require.Equal(t, "agency", p.Segment)
		}
	})

	t.Run("unknown segment fail", func(t *testing.T) {
		status, body := get(t, "/?segment=enterprise")

		require.Equal(t, http.StatusUnprocessableEntity, status)
		require.JSONEq(t, `
			{
				"error": "service_error",
				"message": "Unknown segment"
			}`, body)
	})
}

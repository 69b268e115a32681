package credits

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/testutil"
	"github.com/reputalia/creditos/tests/e2e"
)

const (
	BalanceURL      = "/api/credits/balance"
	ConsumeURL      = "/api/credits/consume"
	PurchaseURL     = "/api/credits/purchase"
	TransactionsURL = "/api/credits/transactions"
)

func Test_Credits(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.ServeInTx(pg.Pool, t, func(tx pgx.Tx, srvURL string, s e2e.Services) {
		username := "test-account"
		pwd := "pwd"
		account, err := s.AccountService.CreateAccount(t.Context(), username, pwd, models.SegmentIndividual)
		require.NoError(t, err)

		// Send authenticated request on behalf of the test account
		do := func(t *testing.T, method string, url string, data any) *http.Response {
			t.Helper()

			var body io.Reader
			if data != nil {
				d, err := json.Marshal(data)
				require.NoError(t, err, "failed to marshal request")
				body = bytes.NewReader(d)
			}
			req, err := http.NewRequest(method, srvURL+url, body)
			require.NoError(t, err, "failed to create request")

			pair, err := s.AuthService.Login(t.Context(), username, pwd)
			require.NoError(t, err, "failed to login account")
			s.AuthService.SetTokensToRequest(req, pair)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "failed to send request")

			return resp
		}

		type consumeRequest struct {
			Amount      int64  `json:"amount"`
			Description string `json:"description"`
			Channel     string `json:"channel,omitempty"`
		}
		type purchaseRequest struct {
			Plan string `json:"plan"`
		}

		t.Run("balance of fresh account", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodGet, BalanceURL, nil)
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"current": 500,
					"granted": 500,
					"spent": 0,
					"alert": "none"
				}`, string(body), "not expected response body")
			})
		})

		t.Run("consume ok", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodPost, ConsumeURL, consumeRequest{Amount: 200, Description: "sentiment scan", Channel: "instagram"})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code, body: %s", string(body))
				require.Contains(t, string(body), `"current":300`)
				require.Contains(t, string(body), `"spent":200`)
				require.Contains(t, string(body), `"transaction_id"`)
			})
		})

		t.Run("consume insufficient fail", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodPost, ConsumeURL, consumeRequest{Amount: 1000, Description: "big report"})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusPaymentRequired, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"error": "service_error",
					"message": "Insufficient balance"
				}`, string(body), "not expected response body")

				// The failed consume must not move the balance
				balance, err := s.Storage.Ledger().GetBalance(t.Context(), account.ID)
				require.NoError(t, err)
				require.EqualValues(t, 500, balance.Current)
			})
		})

		t.Run("consume drains to critical alert", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodPost, ConsumeURL, consumeRequest{Amount: 500, Description: "everything"})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code, body: %s", string(body))
				require.Contains(t, string(body), `"alert":"critical"`)
			})
		})

		t.Run("purchase ok", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodPost, PurchaseURL, purchaseRequest{Plan: "basico"})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code, body: %s", string(body))
				require.Contains(t, string(body), `"plan":"basico"`)
				require.Contains(t, string(body), `"current":5500`)
			})
		})

		t.Run("purchase unknown plan fail", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodPost, PurchaseURL, purchaseRequest{Plan: "plano-fantasma"})
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusUnprocessableEntity, resp.StatusCode, "not expected code, body: %s", string(body))
				require.JSONEq(t, `{
					"error": "service_error",
					"message": "Unknown plan"
				}`, string(body), "not expected response body")
			})
		})

		t.Run("transactions history", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				_, err := s.LedgerService.Consume(t.Context(), account.ID, 100, "scan", "twitter")
				require.NoError(t, err)
				_, err = s.LedgerService.Purchase(t.Context(), account.ID, "profissional")
				require.NoError(t, err)

				resp := do(t, http.MethodGet, TransactionsURL, nil)
				defer resp.Body.Close() // nolint:errcheck
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.Equalf(t, http.StatusOK, resp.StatusCode, "not expected code, body: %s", string(body))

				var listed []struct {
					Kind   string `json:"kind"`
					Amount int64  `json:"amount"`
				}
				require.NoError(t, json.Unmarshal(body, &listed))
				require.Len(t, listed, 3, "welcome allocation, consumption and purchase expected")

				// Filter by kind
				resp = do(t, http.MethodGet, TransactionsURL+"?kind=consumption", nil)
				defer resp.Body.Close() // nolint:errcheck
				body, err = io.ReadAll(resp.Body)
				require.NoError(t, err, "failed to read response body")

				require.NoError(t, json.Unmarshal(body, &listed))
				require.Len(t, listed, 1)
				require.Equal(t, models.KindConsumption, listed[0].Kind)
			})
		})

		t.Run("transactions unknown kind fail", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp := do(t, http.MethodGet, TransactionsURL+"?kind=refund", nil)
				defer resp.Body.Close() // nolint:errcheck

				require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})
		})

		t.Run("unauthorized request", func(t *testing.T) {
			testutil.InTx(tx, t, func(_ pgx.Tx) {
				resp, err := http.Get(srvURL + BalanceURL)
				require.NoError(t, err, "failed to send request")
				defer resp.Body.Close() // nolint:errcheck

				require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})
		})
	})
}

package credits

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reputalia/creditos/internal/models"
	"github.com/reputalia/creditos/internal/testutil"
	"github.com/reputalia/creditos/tests/e2e"
)

// Two simultaneous consumes that both fit the balance alone but not together.
// Exactly one of them must win, the other gets 402, and the committed log
// shows a single consumption. Runs over the real pool: concurrent requests
// need their own connections and commits.
func Test_ConcurrentConsume(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	e2e.Serve(pg.Pool, t, func(srvURL string, s e2e.Services) {
		account, err := s.AccountService.CreateAccount(t.Context(), "concurrent-account", "pwd", models.SegmentIndividual)
		require.NoError(t, err)

		// Welcome 500 plus 200 on top: each consume of 600 fits alone
		_, err = s.LedgerService.Allocate(t.Context(), account.ID, 200, "top up")
		require.NoError(t, err)

		pair, err := s.AuthService.Login(t.Context(), "concurrent-account", "pwd")
		require.NoError(t, err)

		consume := func() int {
			data := `{"amount": 600, "description": "metered call"}`
			req, err := http.NewRequest(http.MethodPost, srvURL+ConsumeURL, strings.NewReader(data))
			require.NoError(t, err, "failed to create request")
			s.AuthService.SetTokensToRequest(req, pair)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "failed to send request")
			defer resp.Body.Close() // nolint:errcheck
			_, _ = io.Copy(io.Discard, resp.Body)

			return resp.StatusCode
		}

		var wg sync.WaitGroup
		codes := make([]int, 2)
		for i := range codes {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes[i] = consume()
			}()
		}
		wg.Wait()

		require.ElementsMatch(t, []int{http.StatusOK, http.StatusPaymentRequired}, codes,
			"exactly one consume should win, codes: %v", codes)

		balance, err := s.Storage.Ledger().GetBalance(t.Context(), account.ID)
		require.NoError(t, err)
		require.EqualValues(t, 100, balance.Current, "only one consume should be applied")
		require.EqualValues(t, 600, balance.Spent)

		consumptions, err := s.Storage.Ledger().ListTransactions(t.Context(), account.ID, models.KindConsumption)
		require.NoError(t, err)
		require.Len(t, consumptions, 1, "only one consumption should be committed")

		// The materialized balance agrees with folding the whole log
		projected, err := s.Storage.Ledger().ProjectBalance(t.Context(), account.ID)
		require.NoError(t, err)
		require.Equal(t, balance.Current, projected.Current)
		require.Equal(t, balance.Granted, projected.Granted)
		require.Equal(t, balance.Spent, projected.Spent)
	})
}

//go:build integration

// functions that are useful in integration tests

package integration

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardpass/pass-issuer/internal/records"
	"github.com/cardpass/pass-issuer/internal/server/handlers"
)

// profileJSON returns a card profile request body for the test tenant.
func profileJSON(cardSerial, title string) string {
	return fmt.Sprintf(`{
		"tenantId": %q,
		"cardSerial": %q,
		"name": "Jane Doe",
		"company": "Acme",
		"title": %q,
		"phone": "(555) 123-4567",
		"publicURL": "https://cards.example.com/acme/%s"
	}`, testTenant, cardSerial, title, cardSerial)
}

type issueResponse struct {
	status  int
	header  http.Header
	body    []byte
	archive []byte
}

// issuePass posts body to /v1/passes as user on the test tenant.
func issuePass(t *testing.T, env *testEnv, user, body string) issueResponse {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, env.baseURL+"/v1/passes", strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.HeaderAPIKey, testAPIKey)
	req.Header.Set(handlers.HeaderTenantID, testTenant)
	req.Header.Set(handlers.HeaderUserID, user)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	r := issueResponse{status: resp.StatusCode, header: resp.Header, body: data}
	if resp.StatusCode == http.StatusOK {
		r.archive = data
	}
	return r
}

// lookupRecord reads the pass record straight from the database.
func lookupRecord(t *testing.T, pool *pgxpool.Pool, cardSerial string) records.PassRecord {
	t.Helper()

	rec, err := records.NewPostgresStore(pool).Lookup(context.Background(), testTenant, cardSerial)
	if err != nil {
		t.Fatalf("Failed to look up pass record %s: %v", cardSerial, err)
	}
	return rec
}

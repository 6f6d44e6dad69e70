package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tomyedwab/asyncsql/backend/sqlite"
	"github.com/tomyedwab/asyncsql/conf"
	"github.com/tomyedwab/asyncsql/data"
	"github.com/tomyedwab/asyncsql/sqlqueue"
)

const testSchema = `CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	avatar BLOB,
	joined DATE
);`

var testStatements = []conf.StatementConfig{
	{
		Name: "add_user",
		SQL:  "INSERT INTO users (name, avatar, joined) VALUES (?, ?, ?)",
		Params: []conf.ColumnConfig{
			{Name: "name", Type: data.Text},
			{Name: "avatar", Type: data.BlobN},
			{Name: "joined", Type: data.DateN},
		},
	},
	{
		Name:   "get_users",
		SQL:    "SELECT id, name, avatar, joined FROM users WHERE id >= ? ORDER BY id",
		Params: []conf.ColumnConfig{{Name: "from", Type: data.Bigint}},
		Results: []conf.ColumnConfig{
			{Name: "id", Type: data.Bigint},
			{Name: "name", Type: data.Text},
			{Name: "avatar", Type: data.BlobN},
			{Name: "joined", Type: data.DateN},
		},
	},
}

type testGateway struct {
	srv  *httptest.Server
	conn *sqlqueue.Connection
	key  []byte
}

func setupGateway(t *testing.T, key []byte) *testGateway {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "gateway.db")+"?_busy_timeout=5000", testSchema)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn, err := sqlqueue.NewConnection(sqlqueue.Config{Name: t.Name(), Type: 3, Workers: 2, Logger: logger})
	require.NoError(t, err)
	require.NoError(t, conn.Start())
	t.Cleanup(conn.Terminate)

	reg := sqlite.NewRegistry(db, conn, logger)
	t.Cleanup(func() { reg.CloseAll() })
	catalog, err := PrepareCatalog(ctx, reg, testStatements)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(Config{
		Catalog:    catalog,
		Connection: conn,
		SecretKey:  key,
		Logger:     logger,
	}).Handler())
	t.Cleanup(srv.Close)
	return &testGateway{srv: srv, conn: conn, key: key}
}

func (g *testGateway) post(t *testing.T, name string, token string, params ...interface{}) (int, ExecuteResponse) {
	body, err := json.Marshal(ExecuteRequest{Params: params})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, g.srv.URL+"/v1/statements/"+name, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out ExecuteResponse
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestExecuteAndQuery(t *testing.T) {
	g := setupGateway(t, nil)

	status, resp := g.post(t, "add_user", "", "alice", "AQID", "2024-02-29")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, uint64(1), resp.LastInsertID)
	require.Equal(t, uint64(1), resp.RowsAffected)
	require.NotEmpty(t, resp.RequestID)

	status, _ = g.post(t, "add_user", "", "bob", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp = g.post(t, "get_users", "", 1)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []string{"id", "name", "avatar", "joined"}, resp.Columns)
	require.Equal(t, uint64(2), resp.RowsAffected)
	require.Equal(t, [][]interface{}{
		{float64(1), "alice", "AQID", "2024-02-29"},
		{float64(2), "bob", nil, nil},
	}, resp.Rows)
}

func TestExecuteFailurePayload(t *testing.T) {
	g := setupGateway(t, nil)

	status, _ := g.post(t, "add_user", "", "alice", nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, resp := g.post(t, "add_user", "", "alice", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Contains(t, resp.Error, "UNIQUE constraint failed")
	require.Equal(t, "2067", resp.Code)

	// The pool keeps serving after a failure.
	status, _ = g.post(t, "add_user", "", "carol", nil, nil)
	require.Equal(t, http.StatusOK, status)
}

func TestExecuteBadRequests(t *testing.T) {
	g := setupGateway(t, nil)

	status, _ := g.post(t, "missing", "")
	require.Equal(t, http.StatusNotFound, status)

	status, _ = g.post(t, "add_user", "", "alice")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = g.post(t, "get_users", "", "one")
	require.Equal(t, http.StatusBadRequest, status)
}

func TestAuthentication(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	g := setupGateway(t, key)

	status, _ := g.post(t, "add_user", "", "alice", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = g.post(t, "add_user", "not-a-token", "alice", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	expired, err := IssueToken(key, "tester", nil, -time.Minute)
	require.NoError(t, err)
	status, _ = g.post(t, "add_user", expired, "alice", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	readOnly, err := IssueToken(key, "reader", []string{"get_users"}, time.Hour)
	require.NoError(t, err)
	status, _ = g.post(t, "add_user", readOnly, "alice", nil, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = g.post(t, "get_users", readOnly, 0)
	require.Equal(t, http.StatusOK, status)

	req, err := http.NewRequest(http.MethodGet, g.srv.URL+"/v1/statements", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+readOnly)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var infos []StatementInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	require.Len(t, infos, 1)
	require.Equal(t, "get_users", infos[0].Name)
	require.Equal(t, data.BlobN, infos[0].Results[2].Type)
}

func TestHealth(t *testing.T) {
	g := setupGateway(t, []byte("secret"))

	resp, err := http.Get(g.srv.URL + "/healthz")
	require.NoError(t, err)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, HealthResponse{State: "running", Workers: 2, Pending: 0}, health)

	g.conn.Terminate()
	resp, err = http.Get(g.srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestExecuteTimeout(t *testing.T) {
	conn, err := sqlqueue.NewConnection(sqlqueue.Config{Name: t.Name(), Workers: 1})
	require.NoError(t, err)
	require.NoError(t, conn.Start())

	release := make(chan struct{})
	slow := sqlqueue.NewStatement(sqlqueue.ExecutorFunc(
		func(ctx context.Context, params data.Set, results data.Container, insertID, rows *uint64) error {
			<-release
			return nil
		}), conn)
	catalog := NewCatalog()
	require.NoError(t, catalog.Add(conf.StatementConfig{Name: "slow", SQL: "-"}, slow))
	require.Error(t, catalog.Add(conf.StatementConfig{Name: "slow", SQL: "-"}, slow))

	srv := httptest.NewServer(NewServer(Config{
		Catalog:        catalog,
		Connection:     conn,
		RequestTimeout: 50 * time.Millisecond,
	}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/statements/slow", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	close(release)
	conn.Terminate()
}

func TestWaiter(t *testing.T) {
	w := NewWaiter()
	cb := w.Callback()
	cb(sqlqueue.Message{Type: 4})
	// A second delivery must not block the worker.
	cb(sqlqueue.Message{Type: 5})

	msg, err := w.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, msg.Type)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadSecretKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt.key")
	first, err := LoadSecretKey(path)
	require.NoError(t, err)
	require.Len(t, first, 32)

	second, err := LoadSecretKey(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	token, err := IssueToken(first, "me", []string{"a"}, time.Minute)
	require.NoError(t, err)
	claims, err := ParseToken(second, token)
	require.NoError(t, err)
	require.Equal(t, "me", claims.Subject)
	require.True(t, claims.Allows("a"))
	require.False(t, claims.Allows("b"))

	_, err = ParseToken([]byte("other"), token)
	require.Error(t, err)
}

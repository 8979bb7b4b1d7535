package main

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCommands(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	for _, args := range [][]string{
		{"list"},
		{"list", "--owner", "alice"},
		{"history", "ws1"},
		{"history", "ws1", "--version", "0"},
		{"stats", "ws1"},
	} {
		root := newRootCmd()
		root.SetArgs(append([]string{"-H", server.URL}, args...))
		require.Nil(t, root.Execute(), "%v", args)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"GET /workspaces",
		"GET /workspaces?owner=alice",
		"GET /workspaces/ws1/history",
		"GET /workspaces/ws1/history?version=0",
		"GET /workspaces/ws1/stats",
	}, requested)
}

func TestFailedRequestsReturnErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workspace not found", http.StatusNotFound)
	}))
	defer server.Close()

	root := newRootCmd()
	root.SetArgs([]string{"-H", server.URL, "stats", "missing"})
	assert.NotNil(t, root.Execute())
}

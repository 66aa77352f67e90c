// Package manager talks to the external attestation-manager service:
// an admin-keyed broker that can perform remote attestation on behalf of a
// node driver that would rather not hold platform credentials itself. The
// manager's own CLI (attman-cli) is invoked as a subprocess: a request
// names itself via --request, carries its backend-specific descriptor in a
// --data JSON file, and answers on stdout in Python-repr byte-list
// literals, which this package parses.
package manager

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/model"
	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/toolchain"
)

// Client is an attestation-manager client. It durably caches responses
// keyed by request fingerprint in a local SQLite database so a retried
// deploy after a transient toolchain failure does not re-spend an
// attestation challenge that already succeeded.
type Client struct {
	Config    *model.ManagerConfig
	CLIBin    string
	Workspace string // directory for scratch --data files

	db *sql.DB
}

// Open opens (creating if absent) the client's response cache at dbPath.
func Open(cfg *model.ManagerConfig, cliBin, workspace, dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("manager: open cache db: %w", err)
	}
	const schema = `CREATE TABLE IF NOT EXISTS responses (
		cache_key TEXT PRIMARY KEY,
		payload   BLOB NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("manager: create cache table: %w", err)
	}
	return &Client{Config: cfg, CLIBin: cliBin, Workspace: workspace, db: db}, nil
}

// Close releases the cache database handle.
func (c *Client) Close() error {
	return c.db.Close()
}

// jsonByteList marshals a byte slice as a JSON array of integers (Python's
// `list(some_bytes)`), rather than Go's default base64 string encoding, so
// the descriptor written for attman-cli matches what the manager's own
// `json.dump` would have produced.
type jsonByteList []byte

func (b jsonByteList) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// AttestRequest is the backend-specific descriptor serialized to the
// --data file of an attest-<backend> request. Common fields are always
// set; which backend-specific fields are populated depends on the caller.
// Key is the locally-derived session key for backends (Sancus, Native)
// whose manager response must be cross-checked against it; Quote is the
// locally-obtained remote-attestation quote for SGX, which trusts the
// manager's returned key without comparison.
type AttestRequest struct {
	ID     uint16 `json:"id"`
	Name   string `json:"name"`
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	EMPort uint16 `json:"em_port"`

	Key   jsonByteList `json:"key,omitempty"`
	Quote jsonByteList `json:"quote,omitempty"`
}

// SPPublicKey returns the service provider's public key, fetching and
// caching it on first use. Unlike Attest, the manager answers this request
// with the raw key bytes on stdout rather than a Python byte-list literal.
func (c *Client) SPPublicKey(ctx context.Context) ([]byte, error) {
	if key, ok := c.Config.CachedSPPubKey(); ok {
		return key, nil
	}
	if key, ok, err := c.lookupCache(ctx, "sp_pubkey"); err != nil {
		return nil, err
	} else if ok {
		c.Config.SetSPPubKeyCache(key)
		return key, nil
	}

	out, err := toolchain.Run(ctx, "", c.CLIBin,
		"--config", c.Config.ConfigPath,
		"--request", "get-pub-key")
	if err != nil {
		return nil, err
	}

	c.Config.SetSPPubKeyCache(out)
	if err := c.storeCache(ctx, "sp_pubkey", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Attest offloads attestation of a module to the manager: req is written
// as a JSON descriptor to a scratch --data file and attman-cli is invoked
// with --request attest-<backend>. Responses are cached by backend+request
// fingerprint so a retried call within the same run does not reissue the
// same challenge to the manager.
func (c *Client) Attest(ctx context.Context, backend string, req AttestRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("manager: marshal attest-%s request: %w", backend, err)
	}

	cacheKey := fmt.Sprintf("attest:%s:%s", backend, payload)
	if cached, ok, err := c.lookupCache(ctx, cacheKey); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	dataFile, err := os.CreateTemp(c.Workspace, "attman-data-*.json")
	if err != nil {
		return nil, fmt.Errorf("manager: create attest data file: %w", err)
	}
	defer os.Remove(dataFile.Name())
	if _, err := dataFile.Write(payload); err != nil {
		dataFile.Close()
		return nil, fmt.Errorf("manager: write attest data file: %w", err)
	}
	if err := dataFile.Close(); err != nil {
		return nil, fmt.Errorf("manager: close attest data file: %w", err)
	}

	out, err := toolchain.Run(ctx, "", c.CLIBin,
		"--config", c.Config.ConfigPath,
		"--request", "attest-"+backend,
		"--data", dataFile.Name())
	if err != nil {
		return nil, err
	}
	response, err := parsePythonByteList(string(out))
	if err != nil {
		return nil, fmt.Errorf("manager: parse attest-%s response: %w", backend, err)
	}

	if err := c.storeCache(ctx, cacheKey, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) lookupCache(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM responses WHERE cache_key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("manager: query cache: %w", err)
	}
	return payload, true, nil
}

func (c *Client) storeCache(ctx context.Context, key string, payload []byte) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO responses (cache_key, payload) VALUES (?, ?)`, key, payload)
	if err != nil {
		return fmt.Errorf("manager: store cache: %w", err)
	}
	return nil
}

// parsePythonByteList parses attman-cli's "[0x1a, 0x2b, ...]" output style
// into a byte slice.
func parsePythonByteList(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("parse byte literal %q: %w", p, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

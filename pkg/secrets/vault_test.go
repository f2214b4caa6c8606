package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wissam-databricks/sncf-travel-assistant-databricks/pkg/logger"
)

type staticManager map[string]string

func (s staticManager) GetSecret(_ context.Context, key string) (string, error) {
	if v, ok := s[key]; ok {
		return v, nil
	}
	return "", ErrSecretNotFound
}

func newKVServer(t *testing.T, data map[string]any, hits *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		assert.Equal(t, "root-token", r.Header.Get("X-Vault-Token"))
		if r.URL.Path != "/v1/secret/data/travel-assistant" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 1},
			},
		})
	}))
}

func TestVaultManager_ReadsAndCaches(t *testing.T) {
	hits := 0
	srv := newKVServer(t, map[string]any{KeyAgentAPIToken: "dapi-from-vault"}, &hits)
	defer srv.Close()

	m, err := NewVaultManager(VaultConfig{
		Address:     srv.URL,
		Token:       "root-token",
		SecretsPath: "travel-assistant",
		MaxRetries:  -1,
	}, nil, logger.Discard())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		v, err := m.GetSecret(context.Background(), KeyAgentAPIToken)
		require.NoError(t, err)
		assert.Equal(t, "dapi-from-vault", v)
	}
	assert.Equal(t, 1, hits)
}

func TestVaultManager_FallsBackWhenKeyMissing(t *testing.T) {
	hits := 0
	srv := newKVServer(t, map[string]any{"other": "x"}, &hits)
	defer srv.Close()

	m, err := NewVaultManager(VaultConfig{
		Address:     srv.URL,
		Token:       "root-token",
		SecretsPath: "travel-assistant",
		MaxRetries:  -1,
	}, staticManager{KeyAgentAPIToken: "from-env"}, logger.Discard())
	require.NoError(t, err)

	v, err := m.GetSecret(context.Background(), KeyAgentAPIToken)
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)
}

func TestNewVaultManager_RequiresAddressAndToken(t *testing.T) {
	_, err := NewVaultManager(VaultConfig{Token: "t"}, nil, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultAddress)

	_, err = NewVaultManager(VaultConfig{Address: "http://127.0.0.1:8200"}, nil, logger.Discard())
	assert.ErrorIs(t, err, ErrNoVaultToken)
}

func TestEnvManager(t *testing.T) {
	t.Setenv("AGENT_API_TOKEN", "dapi-env")

	assert.Equal(t, "AGENT_API_TOKEN", EnvKey(KeyAgentAPIToken))
	assert.Equal(t, "dapi-env", GetSecretWithDefault(context.Background(), EnvManager{}, KeyAgentAPIToken, "fallback"))
	assert.Equal(t, "fallback", GetSecretWithDefault(context.Background(), EnvManager{}, "missing-key", "fallback"))
	assert.Equal(t, "fallback", GetSecretWithDefault(context.Background(), nil, KeyAgentAPIToken, "fallback"))
}

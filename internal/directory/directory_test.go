package directory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"agentwire/internal/crypto"
	"agentwire/internal/directory"
	"agentwire/internal/domain"
)

func TestMemory_PublishAndFetch(t *testing.T) {
	dir := directory.NewMemory()

	id, err := crypto.NewIdentity("alice")
	require.NoError(t, err)
	bundle, err := crypto.BundleFor(id)
	require.NoError(t, err)
	dir.Publish(bundle)

	got, err := dir.Bundle(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, bundle.AgreementKey, got.AgreementKey)
	require.True(t, crypto.VerifyBundle(got))

	_, err = dir.Bundle(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

func TestMemory_CustodialSign(t *testing.T) {
	dir := directory.NewMemory()
	id, err := crypto.NewIdentity("alice")
	require.NoError(t, err)
	require.NoError(t, dir.Custody(id))

	msg := []byte("act on my behalf")
	sig, err := dir.Sign(context.Background(), "alice", msg)
	require.NoError(t, err)
	require.True(t, crypto.VerifyHybrid(id.SigningPub, id.PQSigningPub, msg, sig))

	// Publish-only agents cannot sign.
	other, err := crypto.NewIdentity("bob")
	require.NoError(t, err)
	bundle, err := crypto.BundleFor(other)
	require.NoError(t, err)
	dir.Publish(bundle)
	_, err = dir.Sign(context.Background(), "bob", msg)
	require.Error(t, err)
}

func TestHTTP_BundleFetch(t *testing.T) {
	id, err := crypto.NewIdentity("alice")
	require.NoError(t, err)
	bundle, err := crypto.BundleFor(id)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bundle/alice":
			_ = json.NewEncoder(w).Encode(bundle)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := directory.NewHTTP(srv.URL, srv.Client())
	got, err := c.Bundle(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, crypto.VerifyBundle(got))

	_, err = c.Bundle(context.Background(), "bob")
	require.ErrorIs(t, err, domain.ErrIdentityNotFound)
}

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"skillpick/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeKeyPair writes a self-signed pair named tls.crt/tls.key into dir
func writeKeyPair(t *testing.T, dir, commonName string) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func servedName(t *testing.T, cr *CertReloader) string {
	t.Helper()
	cert, err := cr.GetCertificate(nil)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}

func TestCertReloader(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")

	cr, err := NewCertReloader(certFile, keyFile, errors.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "first", servedName(t, cr))
	assert.Equal(t, uint16(tls.VersionTLS12), cr.TLSConfig().MinVersion)

	writeKeyPair(t, dir, "second")
	require.NoError(t, cr.Reload())
	assert.Equal(t, "second", servedName(t, cr))

	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0600))
	assert.Error(t, cr.Reload())
	assert.Equal(t, "second", servedName(t, cr), "a failed reload keeps the previous pair")
}

func TestNewCertReloaderMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCertReloader(filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key"), errors.NewNopLogger())
	assert.ErrorContains(t, err, "failed to load TLS key pair")
}

func TestCertWatcherTriggersOnRewrite(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")

	var reloads atomic.Int32
	cw := NewCertWatcher([]string{certFile, keyFile, ""}, 20*time.Millisecond, func() { reloads.Add(1) }, errors.NewNopLogger())
	require.NoError(t, cw.Start())
	defer cw.Stop()

	assert.ErrorContains(t, cw.Start(), "already running")

	writeKeyPair(t, dir, "second-generation")
	require.Eventually(t, func() bool { return reloads.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, cw.Stop())
	require.NoError(t, cw.Stop())
}

func TestCertWatcherRefresh(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeKeyPair(t, dir, "first")
	cw := NewCertWatcher([]string{certFile, keyFile}, 0, func() {}, errors.NewNopLogger())
	assert.Equal(t, time.Second, cw.delay)

	assert.True(t, cw.refresh(), "first observation records the files")
	assert.False(t, cw.refresh())

	require.NoError(t, os.Remove(keyFile))
	assert.False(t, cw.refresh(), "a missing file is not a change")

	writeKeyPair(t, dir, "second-generation")
	assert.True(t, cw.refresh())
}

package pass

import (
	"context"
	"testing"
	"time"

	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/crypto/cryptotest"
)

func TestKeystoreSigner(t *testing.T) {
	identity := cryptotest.NewIdentity(t)

	signer, err := NewKeystoreSigner(identity.Keystore)
	if err != nil {
		t.Fatalf("NewKeystoreSigner() error: %v", err)
	}

	manifest := []byte(`{"pass.json":"2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"}`)
	signature, err := signer.Sign(context.Background(), manifest)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if err := crypto.VerifyDetached(signature, manifest, identity.Roots); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}
	if err := signer.CheckReady(); err != nil {
		t.Errorf("CheckReady() error: %v", err)
	}
}

func TestKeystoreSignerErrors(t *testing.T) {
	identity := cryptotest.NewIdentity(t)
	manifest := []byte(`{"pass.json":"00"}`)

	t.Run("nil keystore", func(t *testing.T) {
		_, err := NewKeystoreSigner(nil)
		if CodeOf(err) != ErrCodeSigning {
			t.Errorf("error code = %q, want %q", CodeOf(err), ErrCodeSigning)
		}
	})

	t.Run("empty manifest", func(t *testing.T) {
		signer, _ := NewKeystoreSigner(identity.Keystore)
		_, err := signer.Sign(context.Background(), nil)
		if CodeOf(err) != ErrCodeSigning {
			t.Errorf("error code = %q, want %q", CodeOf(err), ErrCodeSigning)
		}
	})

	t.Run("certificate expired since startup", func(t *testing.T) {
		signer, _ := NewKeystoreSigner(identity.Keystore)
		signer.now = func() time.Time { return identity.Keystore.Certificate().NotAfter.Add(time.Hour) }

		_, err := signer.Sign(context.Background(), manifest)
		if CodeOf(err) != ErrCodeSigning {
			t.Errorf("error code = %q, want %q", CodeOf(err), ErrCodeSigning)
		}
		if signer.CheckReady() == nil {
			t.Error("CheckReady() should fail for an expired certificate")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		signer, _ := NewKeystoreSigner(identity.Keystore)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := signer.Sign(ctx, manifest); err == nil {
			t.Error("expected an error for a cancelled context")
		}
	})
}

package encryption

import (
	"bytes"
	"fmt"
	"io"

	"recall/internal/snapshot"
)

// plainHeader marks data "sealed" by PlainEncryptor.
var plainHeader = []byte("RECALL\x00\x01")

// PlainEncryptor is a reversible stand-in for tests and throwaway instances.
// It prefixes a fixed header and otherwise leaves data as is. Any passphrase
// unlocks it.
type PlainEncryptor struct{}

var _ snapshot.Encryptor = PlainEncryptor{}

func (PlainEncryptor) Setup(string) error { return nil }

func (PlainEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(plainHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (PlainEncryptor) Unlock(string) (snapshot.DecryptionContext, error) {
	return plainDecrypter{}, nil
}

func (PlainEncryptor) IsConfigured() bool { return true }

type plainDecrypter struct{}

func (plainDecrypter) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(plainHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, plainHeader) {
		return fmt.Errorf("data was not written by PlainEncryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

package recall

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"recall/internal/model"
)

const (
	// IDAlphabet is digits plus uppercase letters without the easily confused B, I, O, S and Z.
	IDAlphabet = "0123456789ACDEFGHJKLMNPQRTUVWXY"
	IDLength   = 8

	// TokenAlphabet and TokenLength define session tokens.
	TokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	TokenLength   = 64

	// Ids shorter than this are treated as unset and replaced before insert.
	minIDLength = 6

	maxInsertAttempts = 3
)

// CodeGenerator draws fixed-length codes uniformly from an alphabet.
// It is safe for concurrent use.
type CodeGenerator struct {
	alphabet string
	length   int

	mu  sync.Mutex
	rng *rand.Rand
}

var _ IDGenerator = (*CodeGenerator)(nil)

// NewCodeGenerator creates a generator reading randomness from src.
func NewCodeGenerator(alphabet string, length int, src rand.Source) *CodeGenerator {
	return &CodeGenerator{
		alphabet: alphabet,
		length:   length,
		rng:      rand.New(src),
	}
}

// NewIDGenerator returns a generator of 8-character entity identifiers.
func NewIDGenerator(src rand.Source) *CodeGenerator {
	return NewCodeGenerator(IDAlphabet, IDLength, src)
}

// NewTokenGenerator returns a generator of 64-character session tokens.
// Production callers must pass a source from NewSecureSource.
func NewTokenGenerator(src rand.Source) *CodeGenerator {
	return NewCodeGenerator(TokenAlphabet, TokenLength, src)
}

// NewSecureSource returns a ChaCha8 source seeded from the operating system CSPRNG.
func NewSecureSource() rand.Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("reading random seed: %v", err))
	}
	return rand.NewChaCha8(seed)
}

// New returns the next code.
func (g *CodeGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	b := make([]byte, g.length)
	for i := range b {
		b[i] = g.alphabet[g.rng.IntN(len(g.alphabet))]
	}
	return string(b)
}

// InsertWithRetry assigns entity an identifier (when it has none, or one too
// short to be valid) and inserts it. When insert reports ErrIdentifierCollision
// a fresh identifier is drawn and the insert retried, up to three attempts in
// total. Any other error is returned immediately. On failure the entity's
// identifier is cleared.
func InsertWithRetry[T model.HasIdentifier](ctx context.Context, ids IDGenerator, logger Logger, entity T, insert func(context.Context, T) error) (string, error) {
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		if attempt > 1 || len(entity.Identifier()) < minIDLength {
			entity.SetIdentifier(ids.New())
		}

		err := insert(ctx, entity)
		if err == nil {
			return entity.Identifier(), nil
		}
		if !errors.Is(err, ErrIdentifierCollision) {
			entity.SetIdentifier("")
			return "", err
		}
		logger.Warn("identifier collision", "attempt", attempt, "id", entity.Identifier())
	}

	entity.SetIdentifier("")
	return "", fmt.Errorf("%w (%d attempts)", ErrIdentifierExhausted, maxInsertAttempts)
}

package idgen

import "github.com/google/uuid"

// New returns a new globally unique identifier as string. It is implemented
// as a thin wrapper so tests can stub it.

var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }

// NewToken returns a fresh opaque decision token. Tokens share the id
// generator (128-bit random) but keep their own stub point so tests can make
// them predictable without affecting entity ids.
var NewTokenFunc = func() string { return uuid.New().String() }

func NewToken() string { return NewTokenFunc() }

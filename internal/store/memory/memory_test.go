package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"saldo/internal/store"
	"saldo/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storetest.Suite{NewStore: func() store.Store { return New() }})
}

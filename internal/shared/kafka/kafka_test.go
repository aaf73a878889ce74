package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers("a:9092, b:9092,"))
	assert.Nil(t, splitBrokers(""))
}

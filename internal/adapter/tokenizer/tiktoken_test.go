package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordCounter(t *testing.T) {
	counter := WordCounter{}

	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 1, counter.Count("hello"))
	assert.Equal(t, 4, counter.Count("the quick  brown fox"))
}

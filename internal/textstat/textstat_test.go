package textstat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \t\n  "))
	assert.Equal(t, 1, CountWords("hello"))
	assert.Equal(t, 2, CountWords("hello world"))
	assert.Equal(t, 2, CountWords("hello,   world!"))
	assert.Equal(t, 1, CountWords("snake_case_identifier"))
	assert.Equal(t, 3, CountWords("one\ntwo\tthree"))
	assert.Equal(t, 2, CountWords("--dashed--words--"))
	assert.Equal(t, 0, CountWords("... !!! ???"))
}

func TestCountWordsNonASCII(t *testing.T) {
	assert.Equal(t, 1, CountWords("éé"))
	assert.Equal(t, 3, CountWords("résumé naïve café"))
	assert.Equal(t, 1, CountWords("日本語のテキスト"))
	assert.Equal(t, 2, CountWords("Привет мир"))
	assert.Equal(t, 3, CountWords("mixed ascii café"))
}

func TestCountWordsNeverNegative(t *testing.T) {
	inputs := []string{"", " ", "a", "a b c", "\x00", "1234", "éé --"}
	for _, input := range inputs {
		assert.GreaterOrEqual(t, CountWords(input), 0)
	}
}

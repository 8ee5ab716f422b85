package errors

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesMessageAndLocation(t *testing.T) {
	e := New("sample error message")
	require.NotNil(t, e)

	assert.Regexp(t, `^sample error message: at `, e.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	errOne := New("sample error message one")
	errTwo := Wrap(errOne, "sample error message two")

	assert.Equal(t, errOne, errors.Unwrap(errTwo))
	assert.True(t, Is(errTwo, errOne))
	assert.Contains(t, errTwo.Error(), `caused by`)
}

func TestErrorfAppendsLocation(t *testing.T) {
	err := Errorf(`page %s failed`, `/about`)
	assert.Regexp(t, `^page /about failed at `, err.Error())
}

func TestJoinDropsNil(t *testing.T) {
	a := errors.New("a")
	assert.Nil(t, Join(nil, nil))
	assert.ErrorIs(t, Join(nil, a), a)
}

func TestFilePath(t *testing.T) {
	path := filePath()
	require.NotEmpty(t, path)

	match, err := regexp.MatchString(`^at testing.tRunner.*`, path)
	require.NoError(t, err)
	assert.True(t, match, "expected %q to start with the test runner frame", path)
}

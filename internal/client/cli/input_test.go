package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetPassword(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return []byte("1234"), nil
	}
	var out bytes.Buffer
	pw, err := GetPassword(&out, "PIN", 0)
	require.NoError(t, err)
	assert.Equal(t, "1234", string(pw))
	assert.Equal(t, "PIN: \n", out.String())
}

func TestGetPassword_Error(t *testing.T) {
	old := readPassword
	defer func() { readPassword = old }()
	readPassword = func(int) ([]byte, error) {
		return nil, errors.New("boom")
	}
	var out bytes.Buffer
	_, err := GetPassword(&out, "PIN", 0)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestPrompter_SecretFromPipe(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("4321\n"), &out)

	got, err := p.Secret("PIN")
	require.NoError(t, err)
	assert.Equal(t, "4321", got)
}

func TestPrompter_TextOr(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("typed\n"), &out)

	got, err := p.TextOr("given", "Name")
	require.NoError(t, err)
	assert.Equal(t, "given", got)
	assert.Empty(t, out.String())

	got, err = p.TextOr("", "Name")
	require.NoError(t, err)
	assert.Equal(t, "typed", got)
}

func TestPrompter_NewPIN(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{name: "matching", input: "1234\n1234\n", want: "1234"},
		{name: "mismatch", input: "1234\n4321\n", wantErr: "PINs do not match"},
		{name: "too short", input: "123\n", wantErr: ErrInvalidPIN.Error()},
		{name: "not digits", input: "12a4\n", wantErr: ErrInvalidPIN.Error()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPrompter(strings.NewReader(tc.input), &bytes.Buffer{})
			got, err := p.NewPIN()
			if tc.wantErr != "" {
				require.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			p := NewPrompter(strings.NewReader(tc.input), &bytes.Buffer{})
			got, err := p.Confirm("Sure?")
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

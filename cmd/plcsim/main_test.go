// Copyright 2021 Converter Systems LLC. All rights reserved.

package main

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gotest.tools/assert"
)

func TestHashPassword(t *testing.T) {
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"hash-password", "secret"})
	assert.NilError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NilError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
	assert.Assert(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password")) != nil)
}

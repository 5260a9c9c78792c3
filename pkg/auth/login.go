package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LoginPasteToken prompts on stdout and reads a bearer token from r,
// decoding its identity claims.
func LoginPasteToken(r io.Reader) (*Credential, error) {
	fmt.Println("Paste your Courtline access token:")
	fmt.Print("> ")

	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		return nil, errors.New("no input received")
	}

	token := strings.TrimSpace(scanner.Text())
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}

	cred := FromToken(token)
	if cred.Expired() {
		return nil, errors.New("token is already expired")
	}
	return cred, nil
}

package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"golang.org/x/term"
)

// keyFromFile reads the API key from the first line of path, running the
// interactive setup flow first when the file does not exist yet.
func keyFromFile(path string, verify func(key string) error) (string, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return "", fmt.Errorf("key file \"%s\" does not exist", path)
		}
		if err := runSetup(path, verify); err != nil {
			return "", fmt.Errorf("setup: %w", err)
		}
	}
	if err := verifyPermissions(path); err != nil {
		return "", err
	}
	return readKey(path)
}

// runSetup prompts for the key on the terminal, checks it against the
// provider, and saves it to path for future runs.
func runSetup(path string, verify func(key string) error) error {
	fmt.Printf("Enter API key: \n")
	bytekey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("runSetup: error reading from stdin: %w", err)
	}
	key := string(bytekey)

	if err := verify(key); err != nil {
		return fmt.Errorf("unable to verify api key: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", path, err)
	}
	defer f.Close()
	fmt.Fprintln(f, key)
	fmt.Printf("key written to \"%s\"\n", path)
	return nil
}

func readKey(path string) (key string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error reading key: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	keyb, _, err := r.ReadLine()
	if err != nil {
		return "", fmt.Errorf("error reading line: %w", err)
	}
	return string(keyb), nil
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking keyfile permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// Error messages will state that we want 0600,
	// but we'll also accept 0400 which is even more restricted.
	// The file might be provided by some secrets managing software as readonly.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("invalid permissions for \"%s\": expected file permissions \"-rw-------\"; found \"%s\"", path, fs.FileMode(perms))
	}

	return nil
}

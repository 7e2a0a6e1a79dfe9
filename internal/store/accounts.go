// Package store implements the file-backed persistence for account,
// session, and undelivered-message state. None of the types here lock
// internally: every store is a plain in-memory structure paired with a log
// file, and the server holds one mutex per store, exactly mirroring how the
// original server kept account_list_lock, logged_in_lock, and
// undelivered_lock separate from the data structures they protect.
package store

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// AccountStore holds the ordered list of known usernames, backed by a
// one-username-per-line log file.
type AccountStore struct {
	path     string
	accounts []string
	index    map[string]int
}

// OpenAccountStore loads path if it exists and returns a ready store.
func OpenAccountStore(path string) (*AccountStore, error) {
	s := &AccountStore{path: path, index: make(map[string]int)}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: open account list: %w", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.index[line] = len(s.accounts)
		s.accounts = append(s.accounts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("store: read account list: %w", err)
	}
	return s, nil
}

// Create appends username to the in-memory list and the log file.
func (s *AccountStore) Create(username string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: append account: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\n", username); err != nil {
		return fmt.Errorf("store: write account: %w", err)
	}
	if err := f.Sync(); err != nil {
		return err
	}
	s.index[username] = len(s.accounts)
	s.accounts = append(s.accounts, username)
	return nil
}

// Remove deletes username from the in-memory list and rewrites the log file
// without it.
func (s *AccountStore) Remove(username string) error {
	idx, ok := s.index[username]
	if !ok {
		return nil
	}
	remaining := append(append([]string(nil), s.accounts[:idx]...), s.accounts[idx+1:]...)
	if err := s.rewrite(remaining); err != nil {
		return err
	}
	s.accounts = remaining
	delete(s.index, username)
	for u, i := range s.index {
		if i > idx {
			s.index[u] = i - 1
		}
	}
	return nil
}

func (s *AccountStore) rewrite(accounts []string) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("store: rewrite account list: %w", err)
	}
	defer f.Close()
	for _, u := range accounts {
		if _, err := fmt.Fprintf(f, "%s\n", u); err != nil {
			return fmt.Errorf("store: write account list: %w", err)
		}
	}
	return f.Sync()
}

// Contains reports whether username is a known account.
func (s *AccountStore) Contains(username string) bool {
	_, ok := s.index[username]
	return ok
}

// Search returns every account whose prefix matches pattern, evaluated the
// way Python's re.match does: anchored at the start of the string but not
// required to consume it, case-insensitive. Go's regexp has no re.match
// equivalent, so pattern is compiled with an explicit ^ anchor.
func Search(accounts []string, pattern string) ([]string, error) {
	re, err := regexp.Compile("(?i)^(?:" + pattern + ")")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range accounts {
		if re.MatchString(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// All returns the current account list in insertion order. The slice is
// owned by the caller's lock scope and must not be retained past it.
func (s *AccountStore) All() []string {
	return s.accounts
}

// Clear empties the store and its log file; used by tests.
func (s *AccountStore) Clear() error {
	s.accounts = nil
	s.index = make(map[string]int)
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	return f.Close()
}

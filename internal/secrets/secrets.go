// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the filename is the key name and the trimmed
// contents are the value.
//
// Recognized key files: gemini-api-key, sender-email, smtp-password,
// chat-recipient.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// settingKeys maps secret file names to the settings they fill.
var settingKeys = map[string]string{
	"gemini-api-key": "analyzer.api_key",
	"sender-email":   "email.username",
	"smtp-password":  "email.password",
	"chat-recipient": "chat.recipient",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory yields an empty map. Unreadable files are reported in
// skipped and do not abort the load.
func Load(dir string) (secrets map[string]string, skipped []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil, nil
		}
		return nil, nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets = make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, skipped, nil
}

// Apply fills settings that are still empty in v from recognized secrets.
// Values from the environment or a config file win. It returns the setting
// keys it filled, sorted.
func Apply(v *viper.Viper, secrets map[string]string) []string {
	var applied []string
	for name, key := range settingKeys {
		value, ok := secrets[name]
		if !ok || v.GetString(key) != "" {
			continue
		}
		v.Set(key, value)
		applied = append(applied, key)
	}
	slices.Sort(applied)
	return applied
}

package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ReadConfigDocument reads config.toml as a generic key/value document —
// the representation the app-server's config/read and config/value/write
// RPC methods operate on. A missing file reads as an empty document.
func ReadConfigDocument(codexHome string) (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(codexHome, "config.toml"))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]interface{}{}, nil
		}
		return nil, err
	}
	doc := map[string]interface{}{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// WriteConfigDocument persists a generic key/value document back to
// config.toml, atomically via a temp-file rename.
func WriteConfigDocument(codexHome string, doc map[string]interface{}) error {
	path := filepath.Join(codexHome, "config.toml")
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

package rpc

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mfateev/codex-temporal-go/internal/config"
)

// handleConfigRead returns config.toml as a JSON document, or the value at
// a single dotted gjson path when the request supplies one — config/value
// /write and config/batch/write below apply the inverse (sjson) patch.
func handleConfigRead(codexHome string) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req struct {
			Path string `json:"path,omitempty"`
		}
		if len(params) > 0 {
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, newError(CodeInvalidParams, "invalid params: "+err.Error())
			}
		}

		doc, err := config.ReadConfigDocument(codexHome)
		if err != nil {
			return nil, newError(CodeInternalError, "read config.toml: "+err.Error())
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}

		if req.Path == "" {
			return json.RawMessage(raw), nil
		}
		result := gjson.GetBytes(raw, req.Path)
		if !result.Exists() {
			return nil, nil
		}
		return json.RawMessage(result.Raw), nil
	}
}

type configValueWriteParams struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// handleConfigValueWrite patches a single dotted path into config.toml,
// treating the document as a JSON tree in memory (sjson.SetRawBytes) and
// re-encoding to TOML on write — the same "config as semi-structured
// data" treatment SPEC_FULL.md §4.1 calls for, without a Go struct per
// config key.
func handleConfigValueWrite(codexHome string) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req configValueWriteParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}
		if req.Path == "" {
			return nil, newError(CodeInvalidParams, "path must not be empty")
		}

		doc, err := config.ReadConfigDocument(codexHome)
		if err != nil {
			return nil, newError(CodeInternalError, "read config.toml: "+err.Error())
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}

		patched, err := sjson.SetRawBytes(raw, req.Path, req.Value)
		if err != nil {
			return nil, newError(CodeInvalidParams, "apply value: "+err.Error())
		}

		var newDoc map[string]interface{}
		if err := json.Unmarshal(patched, &newDoc); err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		if err := config.WriteConfigDocument(codexHome, newDoc); err != nil {
			return nil, newError(CodeInternalError, "write config.toml: "+err.Error())
		}
		return struct{}{}, nil
	}
}

type configBatchWriteParams struct {
	Writes []configValueWriteParams `json:"writes"`
}

// handleConfigBatchWrite applies every write in one read-modify-write
// cycle so concurrent single-value writes can't interleave and clobber
// each other's base document.
func handleConfigBatchWrite(codexHome string) Handler {
	return func(_ *Session, params json.RawMessage) (interface{}, *Error) {
		var req configBatchWriteParams
		if rpcErr := unmarshalParams(params, &req); rpcErr != nil {
			return nil, rpcErr
		}

		doc, err := config.ReadConfigDocument(codexHome)
		if err != nil {
			return nil, newError(CodeInternalError, "read config.toml: "+err.Error())
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}

		for _, write := range req.Writes {
			if write.Path == "" {
				return nil, newError(CodeInvalidParams, "path must not be empty")
			}
			raw, err = sjson.SetRawBytes(raw, write.Path, write.Value)
			if err != nil {
				return nil, newError(CodeInvalidParams, "apply value at "+write.Path+": "+err.Error())
			}
		}

		var newDoc map[string]interface{}
		if err := json.Unmarshal(raw, &newDoc); err != nil {
			return nil, newError(CodeInternalError, err.Error())
		}
		if err := config.WriteConfigDocument(codexHome, newDoc); err != nil {
			return nil, newError(CodeInternalError, "write config.toml: "+err.Error())
		}
		return struct{}{}, nil
	}
}

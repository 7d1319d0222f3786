// errors.go: structured error definitions for the go-search registry
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"github.com/agilira/go-errors"
)

// Error codes for the go-search registry
const (
	// Descriptor parse errors (1000-1099)
	ErrCodeNotSearchPlugin     = "PARSE_1001"
	ErrCodeMissingName         = "PARSE_1002"
	ErrCodeMissingSearchURL    = "PARSE_1003"
	ErrCodeInvalidMethod       = "PARSE_1004"
	ErrCodeInvalidTemplate     = "PARSE_1005"
	ErrCodeInvalidEncoding     = "PARSE_1006"
	ErrCodeMalformedDescriptor = "PARSE_1007"

	// Registry operation errors (1100-1199)
	ErrCodeDuplicateEngine   = "REGISTRY_1101"
	ErrCodeEngineNotFound    = "REGISTRY_1102"
	ErrCodeIndexOutOfRange   = "REGISTRY_1103"
	ErrCodeHiddenEngineMove  = "REGISTRY_1104"
	ErrCodeInvalidEngineSpec = "REGISTRY_1105"
	ErrCodeNotInitialized    = "REGISTRY_1106"

	// Persistence errors (1200-1299)
	ErrCodeMetadataReadError  = "PERSIST_1201"
	ErrCodeMetadataWriteError = "PERSIST_1202"
	ErrCodeCacheReadError     = "PERSIST_1203"
	ErrCodeCacheWriteError    = "PERSIST_1204"
	ErrCodeEngineFileError    = "PERSIST_1205"

	// Network and update errors (1300-1399)
	ErrCodeEngineFetchFailed  = "NETWORK_1301"
	ErrCodeIconFetchFailed    = "NETWORK_1302"
	ErrCodeInsecureUpdateURL  = "NETWORK_1303"
	ErrCodeInstallDeclined    = "NETWORK_1304"
	ErrCodeResponseTooLarge   = "NETWORK_1305"
	ErrCodeInvalidEngineURL   = "NETWORK_1306"
	ErrCodeMissingUpdateState = "NETWORK_1307"

	// Lifecycle errors (1400-1499)
	ErrCodeAlreadyInitialized = "LIFECYCLE_1401"
	ErrCodeServiceClosed      = "LIFECYCLE_1402"
	ErrCodeWatcherError       = "LIFECYCLE_1403"
)

// Descriptor parse error constructors

func NewNotSearchPluginError(namespace, localName string) *errors.Error {
	return errors.New(ErrCodeNotSearchPlugin, "Document is not a search plugin").
		WithUserMessage("The file is not a recognized search engine descriptor").
		WithContext("namespace", namespace).
		WithContext("local_name", localName).
		WithSeverity("error")
}

func NewMissingNameError() *errors.Error {
	return errors.New(ErrCodeMissingName, "Descriptor has no name").
		WithUserMessage("The search engine descriptor does not declare a name").
		WithSeverity("error")
}

func NewMissingSearchURLError(name string) *errors.Error {
	return errors.New(ErrCodeMissingSearchURL, "Descriptor has no text/html URL").
		WithUserMessage("The search engine does not declare an HTML results URL").
		WithContext("engine_name", name).
		WithSeverity("error")
}

func NewInvalidMethodError(method string) *errors.Error {
	return errors.New(ErrCodeInvalidMethod, "Invalid submission method").
		WithUserMessage("Search engine URLs must use GET or POST").
		WithContext("method", method).
		WithSeverity("error")
}

func NewInvalidTemplateError(template string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeInvalidTemplate, "Invalid URL template").
			WithUserMessage("The search URL template is not a valid http(s) URL").
			WithContext("template", template).
			WithSeverity("error")
	}
	return errors.New(ErrCodeInvalidTemplate, "Invalid URL template").
		WithUserMessage("The search URL template is not a valid http(s) URL").
		WithContext("template", template).
		WithSeverity("error")
}

func NewInvalidEncodingError(charset string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInvalidEncoding, "Invalid character encoding").
		WithUserMessage("The descriptor declares an unsupported character encoding").
		WithContext("charset", charset).
		WithSeverity("error")
}

func NewMalformedDescriptorError(source string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeMalformedDescriptor, "Malformed descriptor").
		WithUserMessage("The search engine descriptor could not be parsed").
		WithContext("source", source).
		WithSeverity("error")
}

// Registry operation error constructors

func NewDuplicateEngineError(name string) *errors.Error {
	return errors.New(ErrCodeDuplicateEngine, "Duplicate engine name").
		WithUserMessage("A search engine with this name already exists").
		WithContext("engine_name", name).
		WithSeverity("error")
}

func NewEngineNotFoundError(name string) *errors.Error {
	return errors.New(ErrCodeEngineNotFound, "Engine not found").
		WithUserMessage("The requested search engine is not in the registry").
		WithContext("engine_name", name).
		WithSeverity("error")
}

func NewIndexOutOfRangeError(index, length int) *errors.Error {
	return errors.New(ErrCodeIndexOutOfRange, "Engine index out of range").
		WithUserMessage("The requested engine position does not exist").
		WithContext("index", index).
		WithContext("length", length).
		WithSeverity("error")
}

func NewHiddenEngineMoveError(name string) *errors.Error {
	return errors.New(ErrCodeHiddenEngineMove, "Cannot move a hidden engine").
		WithUserMessage("Hidden search engines cannot be repositioned").
		WithContext("engine_name", name).
		WithSeverity("error")
}

func NewInvalidEngineSpecError(field string) *errors.Error {
	return errors.New(ErrCodeInvalidEngineSpec, "Invalid engine specification").
		WithUserMessage("A required engine field is missing or empty").
		WithContext("field", field).
		WithSeverity("error")
}

func NewNotInitializedError() *errors.Error {
	return errors.New(ErrCodeNotInitialized, "Registry not initialized").
		WithUserMessage("The search service has not finished initializing").
		WithSeverity("error")
}

// Persistence error constructors

func NewMetadataReadError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeMetadataReadError, "Metadata read failed").
		WithUserMessage("The engine metadata file could not be read").
		WithContext("path", path).
		WithSeverity("warning")
}

func NewMetadataWriteError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeMetadataWriteError, "Metadata write failed").
		WithUserMessage("The engine metadata file could not be written").
		WithContext("path", path).
		WithSeverity("warning").
		AsRetryable()
}

func NewCacheReadError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCacheReadError, "Cache read failed").
		WithUserMessage("The engine cache file could not be read").
		WithContext("path", path).
		WithSeverity("warning")
}

func NewCacheWriteError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeCacheWriteError, "Cache write failed").
		WithUserMessage("The engine cache file could not be written").
		WithContext("path", path).
		WithSeverity("warning").
		AsRetryable()
}

func NewEngineFileError(path string, message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeEngineFileError, "Engine file error: "+message).
		WithUserMessage("The search engine file could not be accessed").
		WithContext("path", path).
		WithSeverity("error")
}

// Network and update error constructors

func NewEngineFetchFailedError(url string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeEngineFetchFailed, "Engine fetch failed").
		WithUserMessage("The search engine could not be downloaded").
		WithContext("url", url).
		WithSeverity("error").
		AsRetryable()
}

func NewIconFetchFailedError(url string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeIconFetchFailed, "Icon fetch failed").
		WithUserMessage("The search engine icon could not be downloaded").
		WithContext("url", url).
		WithSeverity("warning").
		AsRetryable()
}

func NewInsecureUpdateURLError(name, url string) *errors.Error {
	return errors.New(ErrCodeInsecureUpdateURL, "Insecure update URL for default engine").
		WithUserMessage("Default engine updates require an https update URL").
		WithContext("engine_name", name).
		WithContext("url", url).
		WithSeverity("warning")
}

func NewInstallDeclinedError(name string) *errors.Error {
	return errors.New(ErrCodeInstallDeclined, "Engine installation declined").
		WithUserMessage("The engine installation was not confirmed").
		WithContext("engine_name", name).
		WithSeverity("info")
}

func NewResponseTooLargeError(url string, size, limit int64) *errors.Error {
	return errors.New(ErrCodeResponseTooLarge, "Response exceeds size limit").
		WithUserMessage("The downloaded resource is too large").
		WithContext("url", url).
		WithContext("size", size).
		WithContext("limit", limit).
		WithSeverity("error")
}

func NewInvalidEngineURLError(raw string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeInvalidEngineURL, "Invalid engine URL").
		WithUserMessage("The engine URL is malformed").
		WithContext("url", raw).
		WithSeverity("error")
}

func NewMissingUpdateStateError(name string) *errors.Error {
	return errors.New(ErrCodeMissingUpdateState, "No recorded source format for update").
		WithUserMessage("The engine cannot be updated because its source format is unknown").
		WithContext("engine_name", name).
		WithSeverity("warning")
}

// Lifecycle error constructors

func NewAlreadyInitializedError() *errors.Error {
	return errors.New(ErrCodeAlreadyInitialized, "Already initialized").
		WithUserMessage("Initialization already completed on another path").
		WithSeverity("info")
}

func NewServiceClosedError() *errors.Error {
	return errors.New(ErrCodeServiceClosed, "Service closed").
		WithUserMessage("The search service has been shut down").
		WithSeverity("error")
}

func NewWatcherError(message string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeWatcherError, "Preferences watcher error: "+message).
		WithUserMessage("Preferences file monitoring failed").
		WithSeverity("error")
}

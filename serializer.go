package rxkafka

import (
	"encoding/json"
	"fmt"
)

// Serializer defines the interface for encoding record keys and values before
// publishing. Implementations can provide custom encoding logic (e.g., JSON,
// Protobuf, Avro, etc.).
type Serializer interface {
	// Serialize converts the input data to a byte slice
	Serialize(data interface{}) ([]byte, error)
}

// Deserializer defines the interface for decoding record keys and values on
// the consuming side. Implementations can provide custom decoding logic.
type Deserializer interface {
	// Deserialize converts a byte slice into the target data structure
	Deserialize(data []byte, target interface{}) error
}

// ==================== JSON Serializer ====================

// JSONSerializer implements Serializer using JSON encoding.
// This is the default serializer for both keys and values.
//
// Features:
//   - Handles any Go type that can be marshaled to JSON
//   - Automatically passes through []byte without modification
//   - Thread-safe
type JSONSerializer struct{}

// Serialize converts data to JSON bytes.
func (j *JSONSerializer) Serialize(data interface{}) ([]byte, error) {
	// If data is already []byte, return it directly
	if bytes, ok := data.([]byte); ok {
		return bytes, nil
	}

	// If data is a string, convert to bytes
	if str, ok := data.(string); ok {
		return []byte(str), nil
	}

	// Otherwise, marshal to JSON
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("JSONSerializer: failed to serialize: %w", err)
	}
	return bytes, nil
}

// JSONDeserializer implements Deserializer using JSON decoding.
// This is the default deserializer for both keys and values.
type JSONDeserializer struct{}

// Deserialize converts JSON bytes to the target structure.
func (j *JSONDeserializer) Deserialize(data []byte, target interface{}) error {
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("JSONDeserializer: failed to deserialize: %w", err)
	}
	return nil
}

// ==================== String Serializer ====================

// StringSerializer implements Serializer for string data.
// This is useful for text-based messages.
type StringSerializer struct{}

// Serialize converts data to bytes.
func (s *StringSerializer) Serialize(data interface{}) ([]byte, error) {
	// If data is already []byte, return it directly
	if bytes, ok := data.([]byte); ok {
		return bytes, nil
	}

	// If data is a string, convert to bytes
	if str, ok := data.(string); ok {
		return []byte(str), nil
	}

	// For other types, use fmt.Sprintf
	return []byte(fmt.Sprintf("%v", data)), nil
}

// StringDeserializer implements Deserializer for string data.
type StringDeserializer struct{}

// Deserialize converts bytes to string.
func (s *StringDeserializer) Deserialize(data []byte, target interface{}) error {
	// If target is *string, set it directly
	if strPtr, ok := target.(*string); ok {
		*strPtr = string(data)
		return nil
	}

	// If target is *[]byte, copy the data
	if bytesPtr, ok := target.(*[]byte); ok {
		*bytesPtr = data
		return nil
	}

	return fmt.Errorf("StringDeserializer: target must be *string or *[]byte, got %T", target)
}

// ==================== Bytes Serializer ====================

// BytesSerializer passes through byte slices without modification.
// Use this when you want to handle encoding yourself or work with raw bytes.
type BytesSerializer struct{}

// Serialize returns the data as-is if it's a byte slice, otherwise returns an error.
func (b *BytesSerializer) Serialize(data interface{}) ([]byte, error) {
	bytes, ok := data.([]byte)
	if !ok {
		return nil, fmt.Errorf("BytesSerializer: requires []byte input, got %T", data)
	}
	return bytes, nil
}

// BytesDeserializer does not perform any decoding.
// The target must be a *[]byte to receive the raw bytes.
type BytesDeserializer struct{}

// Deserialize copies the raw bytes to the target if it's a *[]byte.
func (b *BytesDeserializer) Deserialize(data []byte, target interface{}) error {
	bytesPtr, ok := target.(*[]byte)
	if !ok {
		return fmt.Errorf("BytesDeserializer: requires *[]byte target, got %T", target)
	}
	*bytesPtr = data
	return nil
}

// getDefaultSerializer returns the appropriate serializer for a configured format
func getDefaultSerializer(format string) Serializer {
	switch format {
	case "string":
		return &StringSerializer{}
	case "bytes":
		return &BytesSerializer{}
	case "json", "":
		// Default to JSON
		return &JSONSerializer{}
	default:
		// Unknown format, default to JSON
		return &JSONSerializer{}
	}
}

// getDefaultDeserializer returns the appropriate deserializer for a configured format
func getDefaultDeserializer(format string) Deserializer {
	switch format {
	case "string":
		return &StringDeserializer{}
	case "bytes":
		return &BytesDeserializer{}
	case "json", "":
		// Default to JSON
		return &JSONDeserializer{}
	default:
		// Unknown format, default to JSON
		return &JSONDeserializer{}
	}
}

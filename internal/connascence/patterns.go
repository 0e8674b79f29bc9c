package connascence

import "strings"

// AlgorithmPattern is a keyword signature suggesting two sides of a
// shared algorithm.
type AlgorithmPattern struct {
	Pattern string `json:"pattern"`
	Context string `json:"context"`
}

// DetectAlgorithmPatterns scans text for encode/decode, serialize/
// deserialize, hashing, compression and encryption signatures. Each
// signature is reported at most once. Presence anywhere in the text
// is enough; the keywords need not share a function.
func DetectAlgorithmPatterns(content string) []AlgorithmPattern {
	var out []AlgorithmPattern
	has := func(s string) bool { return strings.Contains(content, s) }

	if has("encode") && has("decode") {
		out = append(out, AlgorithmPattern{"encode/decode", "Encoding algorithm must match"})
	}
	if has("serialize") && has("deserialize") {
		out = append(out, AlgorithmPattern{"serialize/deserialize", "Serialization format must match"})
	}
	if (has("hash") || has("Hash")) && (has("sha") || has("md5") || has("blake")) {
		out = append(out, AlgorithmPattern{"hash algorithm", "Hash algorithm must be consistent"})
	}
	if has("compress") && has("decompress") {
		out = append(out, AlgorithmPattern{"compression", "Compression algorithm must match"})
	}
	if has("encrypt") && has("decrypt") {
		out = append(out, AlgorithmPattern{"encryption", "Encryption algorithm must match"})
	}
	return out
}

package domain

// Algorithm represents the symmetric encryption algorithm bound to a key descriptor.
//
// Software-backed descriptors implement these directly; platform-backed
// descriptors delegate to a named native provider that must support the
// same algorithm. The algorithm identifier is persisted verbatim in the
// exported document, so values here are part of the on-disk contract.
type Algorithm string

const (
	// AESCBC represents AES in CBC mode, always paired with an HMAC
	// validation algorithm for authentication (encrypt-then-MAC).
	AESCBC Algorithm = "aes-cbc"

	// AESGCM represents the AES-GCM authenticated encryption algorithm.
	//
	// Key features:
	//   - 128/192/256-bit key sizes
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Hardware acceleration on modern CPUs
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	//
	// Key features:
	//   - 256-bit key size only
	//   - 12-byte nonce (96 bits)
	//   - 16-byte authentication tag
	//   - Constant-time implementation, excellent software performance
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// ValidationAlgorithm represents the MAC algorithm paired with CBC-mode
// encryption. GCM and ChaCha20-Poly1305 carry their own authenticators
// and never use a separate validation algorithm.
type ValidationAlgorithm string

const (
	// HMACSHA256 is HMAC with SHA-256 (32-byte digest).
	HMACSHA256 ValidationAlgorithm = "hmac-sha256"

	// HMACSHA384 is HMAC with SHA-384 (48-byte digest).
	HMACSHA384 ValidationAlgorithm = "hmac-sha384"

	// HMACSHA512 is HMAC with SHA-512 (64-byte digest).
	HMACSHA512 ValidationAlgorithm = "hmac-sha512"
)

// MinDigestBits is the policy floor for validation algorithm digest sizes.
// Anything producing a shorter digest fails configuration validation.
const MinDigestBits = 256

// DigestBits returns the digest size of the validation algorithm in bits,
// or 0 when the algorithm is not recognized.
func (v ValidationAlgorithm) DigestBits() int {
	switch v {
	case HMACSHA256:
		return 256
	case HMACSHA384:
		return 384
	case HMACSHA512:
		return 512
	default:
		return 0
	}
}

// Package logging provides structured logging utilities for gwsa.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - PII sanitization (email anonymization, token masking)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "chat.mentions")
//	logger.Debug("space skipped",
//	    logging.Space(space.Name),
//	    logging.Status("skipped"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("profile saved",
//	    logging.Profile(name),
//	    logging.UserHash(email))
//
// # Security Considerations
//
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly
package logging

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

// ============================================================
// NewSanitizingHandler tests
// ============================================================

func TestNewSanitizingHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	handler := NewSanitizingHandler(inner, true)

	if handler == nil {
		t.Fatal("expected non-nil handler")
	}
	if handler.sanitize != true {
		t.Error("expected sanitize to be true")
	}
	if handler.handler != inner {
		t.Error("expected inner handler to be set")
	}
}

func TestNewSanitizingHandler_SanitizeFalse(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	handler := NewSanitizingHandler(inner, false)

	if handler.sanitize != false {
		t.Error("expected sanitize to be false")
	}
}

// ============================================================
// SanitizingHandler.Enabled tests
// ============================================================

func TestSanitizingHandler_Enabled_DelegatesToInner(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})
	handler := NewSanitizingHandler(inner, true)

	ctx := context.Background()

	if handler.Enabled(ctx, slog.LevelDebug) {
		t.Error("expected debug to be disabled")
	}
	if handler.Enabled(ctx, slog.LevelInfo) {
		t.Error("expected info to be disabled")
	}
	if !handler.Enabled(ctx, slog.LevelWarn) {
		t.Error("expected warn to be enabled")
	}
	if !handler.Enabled(ctx, slog.LevelError) {
		t.Error("expected error to be enabled")
	}
}

// ============================================================
// Helper: parse JSON log output
// ============================================================

func parseLogOutput(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse log output: %v\nraw: %s", err, buf.String())
	}
	return result
}

// ============================================================
// SanitizingHandler.Handle tests
// ============================================================

func TestHandle_SanitizeTrue_RedactsPassword(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test", slog.String("password", "mysecretpass"))

	result := parseLogOutput(t, &buf)
	if result["password"] != "[REDACTED]" {
		t.Errorf("expected password to be [REDACTED], got %v", result["password"])
	}
}

func TestHandle_SanitizeTrue_RedactsToken(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test", slog.String("api_token", "tk-12345"))

	result := parseLogOutput(t, &buf)
	if result["api_token"] != "[REDACTED]" {
		t.Errorf("expected api_token to be [REDACTED], got %v", result["api_token"])
	}
}

func TestHandle_SanitizeTrue_NonSensitivePassesThrough(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test",
		slog.String("username", "admin"),
		slog.String("host", "example.com"),
		slog.Int("port", 22),
	)

	result := parseLogOutput(t, &buf)
	if result["username"] != "admin" {
		t.Errorf("expected username to be 'admin', got %v", result["username"])
	}
	if result["host"] != "example.com" {
		t.Errorf("expected host to be 'example.com', got %v", result["host"])
	}
	if result["port"] != float64(22) {
		t.Errorf("expected port to be 22, got %v", result["port"])
	}
}

func TestHandle_SanitizeTrue_MixedSensitiveAndNonSensitive(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("session started",
		slog.String("session_id", "abc123"),
		slog.String("password", "secret123"),
		slog.String("shell", "/bin/bash"),
	)

	result := parseLogOutput(t, &buf)
	if result["session_id"] != "abc123" {
		t.Errorf("expected session_id to pass through, got %v", result["session_id"])
	}
	if result["password"] != "[REDACTED]" {
		t.Errorf("expected password to be redacted, got %v", result["password"])
	}
	if result["shell"] != "/bin/bash" {
		t.Errorf("expected shell to pass through, got %v", result["shell"])
	}
}

func TestHandle_SanitizeFalse_NothingRedacted(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, false)
	logger := slog.New(handler)

	logger.Info("test",
		slog.String("password", "plaintext"),
		slog.String("token", "tk-visible"),
		slog.String("secret", "s3cr3t"),
	)

	result := parseLogOutput(t, &buf)
	if result["password"] != "plaintext" {
		t.Errorf("expected password to pass through when sanitize=false, got %v", result["password"])
	}
	if result["token"] != "tk-visible" {
		t.Errorf("expected token to pass through when sanitize=false, got %v", result["token"])
	}
	if result["secret"] != "s3cr3t" {
		t.Errorf("expected secret to pass through when sanitize=false, got %v", result["secret"])
	}
}

func TestHandle_SanitizeTrue_CaseInsensitiveKey(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test", slog.String("Password", "secret"))

	result := parseLogOutput(t, &buf)
	if result["Password"] != "[REDACTED]" {
		t.Errorf("expected Password (mixed case) to be redacted, got %v", result["Password"])
	}
}

func TestHandle_SanitizeTrue_SubstringMatch(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test", slog.String("my_key_value", "some-api-key"))

	result := parseLogOutput(t, &buf)
	if result["my_key_value"] != "[REDACTED]" {
		t.Errorf("expected my_key_value to be redacted (contains 'key'), got %v", result["my_key_value"])
	}
}

// ============================================================
// SanitizingHandler.WithAttrs tests
// ============================================================

func TestWithAttrs_SanitizeTrue_RedactsSensitive(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)

	withAttrs := handler.WithAttrs([]slog.Attr{
		slog.String("password", "secret123"),
		slog.String("username", "admin"),
	})

	logger := slog.New(withAttrs)
	logger.Info("test")

	result := parseLogOutput(t, &buf)
	if result["password"] != "[REDACTED]" {
		t.Errorf("expected password to be redacted via WithAttrs, got %v", result["password"])
	}
	if result["username"] != "admin" {
		t.Errorf("expected username to pass through via WithAttrs, got %v", result["username"])
	}
}

func TestWithAttrs_SanitizeFalse_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, false)

	withAttrs := handler.WithAttrs([]slog.Attr{
		slog.String("password", "secret123"),
		slog.String("token", "tk-abc"),
	})

	logger := slog.New(withAttrs)
	logger.Info("test")

	result := parseLogOutput(t, &buf)
	if result["password"] != "secret123" {
		t.Errorf("expected password to pass through when sanitize=false, got %v", result["password"])
	}
	if result["token"] != "tk-abc" {
		t.Errorf("expected token to pass through when sanitize=false, got %v", result["token"])
	}
}

func TestWithAttrs_ReturnsNewSanitizingHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)

	result := handler.WithAttrs([]slog.Attr{slog.String("foo", "bar")})

	sh, ok := result.(*SanitizingHandler)
	if !ok {
		t.Fatal("expected WithAttrs to return *SanitizingHandler")
	}
	if sh.sanitize != true {
		t.Error("expected sanitize to be preserved")
	}
}

// ============================================================
// SanitizingHandler.WithGroup tests
// ============================================================

func TestWithGroup_ReturnsNewSanitizingHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)

	result := handler.WithGroup("mygroup")

	sh, ok := result.(*SanitizingHandler)
	if !ok {
		t.Fatal("expected WithGroup to return *SanitizingHandler")
	}
	if sh.sanitize != true {
		t.Error("expected sanitize to be preserved")
	}
}

func TestWithGroup_OutputContainsGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)

	grouped := handler.WithGroup("mygroup")
	logger := slog.New(grouped)
	logger.Info("test", slog.String("field", "value"))

	result := parseLogOutput(t, &buf)
	groupData, ok := result["mygroup"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'mygroup' group in output, got %v", result)
	}
	if groupData["field"] != "value" {
		t.Errorf("expected field='value' in group, got %v", groupData["field"])
	}
}

// ============================================================
// Group attribute sanitization (nested groups with sensitive keys)
// ============================================================

func TestHandle_SanitizeTrue_NestedGroupAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test",
		slog.Group("connection",
			slog.String("host", "example.com"),
			slog.String("password", "secret"),
			slog.String("token", "tk-xxx"),
		),
	)

	result := parseLogOutput(t, &buf)
	conn, ok := result["connection"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'connection' group in output, got %v", result)
	}
	if conn["host"] != "example.com" {
		t.Errorf("expected host to pass through in group, got %v", conn["host"])
	}
	if conn["password"] != "[REDACTED]" {
		t.Errorf("expected password to be redacted in group, got %v", conn["password"])
	}
	if conn["token"] != "[REDACTED]" {
		t.Errorf("expected token to be redacted in group, got %v", conn["token"])
	}
}

func TestHandle_SanitizeTrue_DeeplyNestedGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("test",
		slog.Group("outer",
			slog.Group("inner",
				slog.String("secret", "deep-secret"),
				slog.String("name", "visible"),
			),
		),
	)

	result := parseLogOutput(t, &buf)
	outer, ok := result["outer"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'outer' group, got %v", result)
	}
	inner2, ok := outer["inner"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'inner' group, got %v", outer)
	}
	if inner2["secret"] != "[REDACTED]" {
		t.Errorf("expected deeply nested secret to be redacted, got %v", inner2["secret"])
	}
	if inner2["name"] != "visible" {
		t.Errorf("expected name to pass through in nested group, got %v", inner2["name"])
	}
}

func TestWithGroup_SanitizesAttrsInGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)

	grouped := handler.WithGroup("session")
	logger := slog.New(grouped)
	logger.Info("exec",
		slog.String("command", "echo hi"),
		slog.String("auth_token", "s3cr3t"),
	)

	result := parseLogOutput(t, &buf)
	sessionGroup, ok := result["session"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'session' group, got %v", result)
	}
	if sessionGroup["command"] != "echo hi" {
		t.Errorf("expected command to pass through in WithGroup, got %v", sessionGroup["command"])
	}
	if sessionGroup["auth_token"] != "[REDACTED]" {
		t.Errorf("expected auth_token to be redacted in WithGroup, got %v", sessionGroup["auth_token"])
	}
}

// ============================================================
// Setup tests
// ============================================================

func TestSetup_DebugLevel(t *testing.T) {
	Setup("debug", true)
	handler := slog.Default().Handler()
	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled after Setup('debug', ...)")
	}
}

func TestSetup_InfoLevel(t *testing.T) {
	Setup("info", true)
	handler := slog.Default().Handler()
	if !handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be enabled after Setup('info', ...)")
	}
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be disabled after Setup('info', ...)")
	}
}

func TestSetup_WarnLevel(t *testing.T) {
	Setup("warn", true)
	handler := slog.Default().Handler()
	if !handler.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected warn level to be enabled after Setup('warn', ...)")
	}
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be disabled after Setup('warn', ...)")
	}
}

func TestSetup_ErrorLevel(t *testing.T) {
	Setup("error", true)
	handler := slog.Default().Handler()
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("expected error level to be enabled after Setup('error', ...)")
	}
	if handler.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("expected warn level to be disabled after Setup('error', ...)")
	}
}

func TestSetup_UnknownLevel_DefaultsToInfo(t *testing.T) {
	Setup("unknown", true)
	handler := slog.Default().Handler()
	if !handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be enabled for unknown level string")
	}
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be disabled for unknown level string (defaults to info)")
	}
}

func TestSetup_EmptyLevel_DefaultsToInfo(t *testing.T) {
	Setup("", true)
	handler := slog.Default().Handler()
	if !handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info level to be enabled for empty level string")
	}
	if handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be disabled for empty level string")
	}
}

// ============================================================
// All sensitive keys table-driven test
// ============================================================

func TestHandle_SanitizeTrue_AllSensitiveKeys(t *testing.T) {
	keys := []string{
		"password",
		"secret",
		"token",
		"key",
		"credential",
		"passphrase",
		"auth",
	}

	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			var buf bytes.Buffer
			inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
			handler := NewSanitizingHandler(inner, true)
			logger := slog.New(handler)

			logger.Info("test", slog.String(key, "sensitive-value"))

			result := parseLogOutput(t, &buf)
			if result[key] != "[REDACTED]" {
				t.Errorf("expected key %q to be [REDACTED], got %v", key, result[key])
			}
		})
	}
}

// ============================================================
// Handle preserves message and level
// ============================================================

func TestHandle_PreservesMessageAndLevel(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Warn("something happened", slog.String("detail", "info"))

	result := parseLogOutput(t, &buf)
	if result["msg"] != "something happened" {
		t.Errorf("expected msg 'something happened', got %v", result["msg"])
	}
	if result["level"] != "WARN" {
		t.Errorf("expected level WARN, got %v", result["level"])
	}
	if result["detail"] != "info" {
		t.Errorf("expected detail 'info', got %v", result["detail"])
	}
}

func TestHandle_SanitizeTrue_NoAttributes(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewSanitizingHandler(inner, true)
	logger := slog.New(handler)

	logger.Info("no attrs")

	result := parseLogOutput(t, &buf)
	if result["msg"] != "no attrs" {
		t.Errorf("expected msg 'no attrs', got %v", result["msg"])
	}
}

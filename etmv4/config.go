package etmv4

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config holds the ETMv4 trace unit registers a decode depends on.
type Config struct {
	RegIDR0     uint32
	RegIDR1     uint32
	RegIDR2     uint32
	RegIDR8     uint32
	RegIDR9     uint32
	RegIDR12    uint32
	RegIDR13    uint32
	RegTRACEIDR uint32
}

// TraceID returns the CoreSight trace ID.
func (c Config) TraceID() uint8 {
	return uint8(c.RegTRACEIDR & 0x7F)
}

// MajVersion and MinVersion give the trace architecture version from TRCIDR1.
func (c Config) MajVersion() uint8 {
	return uint8((c.RegIDR1 >> 8) & 0xF)
}

func (c Config) MinVersion() uint8 {
	return uint8((c.RegIDR1 >> 4) & 0xF)
}

// HasCycleCountI reports whether the unit implements instruction cycle counting.
func (c Config) HasCycleCountI() bool {
	return (c.RegIDR0 & 0x80) == 0x80
}

// IASizeMax is the widest instruction address the unit traces, 32 or 64.
func (c Config) IASizeMax() uint32 {
	if (c.RegIDR2 & 0x1F) == 0x8 {
		return 64
	}
	return 32
}

func (c Config) MaxSpecDepth() uint32 {
	return c.RegIDR8
}

func (c Config) P0KeyMax() uint32 {
	if c.RegIDR9 == 0 {
		return 1
	}
	return c.RegIDR9
}

func (c Config) CondKeyMaxIncr() uint32 {
	return c.RegIDR12 - c.RegIDR13
}

// LoadConfig parses an ETMv4 device ini file into a Config.
func LoadConfig(deviceIniPath string) (Config, error) {
	f, err := os.Open(deviceIniPath)
	if err != nil {
		return Config{}, fmt.Errorf("read device ini: %w", err)
	}
	defer f.Close()

	cfg, err := ParseConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", deviceIniPath, err)
	}
	return cfg, nil
}

// ParseConfig reads the [regs] section of a device ini.
func ParseConfig(r io.Reader) (Config, error) {
	var cfg Config
	section := ""
	foundIDR0 := false
	foundIDR1 := false
	foundTRACEIDR := false

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.Trim(line, "[]"))
			continue
		}
		if section != "regs" {
			continue
		}

		key, value, ok := splitIniKV(line)
		if !ok {
			continue
		}
		parsed, parseErr := parseHexUint32(value)
		if parseErr != nil {
			continue
		}

		switch normalizeRegName(key) {
		case "TRCIDR0":
			cfg.RegIDR0 = parsed
			foundIDR0 = true
		case "TRCIDR1":
			cfg.RegIDR1 = parsed
			foundIDR1 = true
		case "TRCIDR2":
			cfg.RegIDR2 = parsed
		case "TRCIDR8":
			cfg.RegIDR8 = parsed
		case "TRCIDR9":
			cfg.RegIDR9 = parsed
		case "TRCIDR12":
			cfg.RegIDR12 = parsed
		case "TRCIDR13":
			cfg.RegIDR13 = parsed
		case "TRCTRACEIDR":
			cfg.RegTRACEIDR = parsed
			foundTRACEIDR = true
		}
	}
	if err := sc.Err(); err != nil {
		return Config{}, fmt.Errorf("read device ini: %w", err)
	}

	if !foundIDR0 || !foundIDR1 || !foundTRACEIDR {
		return Config{}, fmt.Errorf("missing required ETMv4 registers (TRCIDR0, TRCIDR1, TRCTRACEIDR)")
	}
	return cfg, nil
}

func splitIniKV(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" || value == "" {
		return "", "", false
	}
	return key, value, true
}

func normalizeRegName(key string) string {
	if idx := strings.Index(key, "("); idx >= 0 {
		key = key[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(key))
}

func parseHexUint32(value string) (uint32, error) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(strings.ToLower(value), "0x")
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}
	parsed, err := strconv.ParseUint(value, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(parsed), nil
}

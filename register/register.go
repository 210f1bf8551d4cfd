// Package register adds the viewer to an MCP client configuration file.
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Scopes accepted by Register.
const (
	ScopeProject = "project"
	ScopeUser    = "user"
)

type serverEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Options describe one registration.
type Options struct {
	Scope      string   // ScopeProject writes <Directory>/.mcp.json, ScopeUser ~/.claude.json
	Directory  string   // Project directory, "." when empty
	ServerName string   // Key under mcpServers
	ServerArgs []string // Arguments forwarded to the server on start
	BinaryPath string   // Server binary, the running executable when empty
}

// Register adds or replaces the server entry and returns the written path.
func Register(options Options) (string, error) {
	if options.Scope != ScopeProject && options.Scope != ScopeUser {
		return "", fmt.Errorf("unknown scope %q (must be %q or %q)", options.Scope, ScopeProject, ScopeUser)
	}
	if options.ServerName == "" {
		return "", errors.New("server name is required")
	}

	binaryPath := options.BinaryPath
	if binaryPath == "" {
		detected, err := detectBinaryPath()
		if err != nil {
			return "", err
		}
		binaryPath = detected
	}

	configPath, err := resolveConfigPath(options.Scope, options.Directory)
	if err != nil {
		return "", err
	}

	entry := buildEntry(binaryPath, options.ServerArgs, runtime.GOOS)
	if err := writeConfig(configPath, options.ServerName, entry); err != nil {
		return "", err
	}
	return configPath, nil
}

// SplitArgs separates the optional project directory from the arguments
// forwarded to the server. Everything after "--" is forwarded; without a
// separator, the first argument of a project registration that is not a flag
// names the directory and the rest is forwarded.
func SplitArgs(scope string, args []string) (directory string, serverArgs []string) {
	directory = "."
	for i, arg := range args {
		if arg == "--" {
			return directory, args[i+1:]
		}
		if i == 0 && scope == ScopeProject && !strings.HasPrefix(arg, "-") {
			directory = arg
			continue
		}
		return directory, args[i:]
	}
	return directory, nil
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

func resolveConfigPath(scope string, directory string) (string, error) {
	if scope == ScopeUser {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(homeDir, ".claude.json"), nil
	}

	if directory == "" {
		directory = "."
	}
	absDir, err := filepath.Abs(directory)
	if err != nil {
		return "", fmt.Errorf("resolving directory %s: %w", directory, err)
	}
	return filepath.Join(absDir, ".mcp.json"), nil
}

// buildEntry wraps the binary in cmd /C on Windows.
func buildEntry(binaryPath string, serverArgs []string, goos string) serverEntry {
	if goos == "windows" {
		return serverEntry{
			Command: "cmd",
			Args:    append([]string{"/C", binaryPath}, serverArgs...),
		}
	}
	return serverEntry{Command: binaryPath, Args: serverArgs}
}

// writeConfig merges entry into the mcpServers object of configPath,
// keeping every other key, and replaces the file atomically.
func writeConfig(configPath string, serverName string, entry serverEntry) error {
	config, err := readConfig(configPath)
	if err != nil {
		return err
	}

	servers := map[string]json.RawMessage{}
	if raw, ok := config["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil || servers == nil {
			return fmt.Errorf("mcpServers in %s is not an object", configPath)
		}
	}

	encodedEntry, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling server entry: %w", err)
	}
	servers[serverName] = encodedEntry

	encodedServers, err := json.Marshal(servers)
	if err != nil {
		return fmt.Errorf("marshaling servers: %w", err)
	}
	config["mcpServers"] = encodedServers

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return writeFileAtomic(configPath, append(output, '\n'))
}

func readConfig(configPath string) (map[string]json.RawMessage, error) {
	config := map[string]json.RawMessage{}
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", configPath, err)
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing existing config %s: %w", configPath, err)
	}
	return config, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".mcp-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

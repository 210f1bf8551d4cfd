package ignore

// DefaultIgnorePatterns are always excluded from the corpus. Plain names
// match any path segment; glob patterns match the base name.
var DefaultIgnorePatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Dependencies
	"node_modules",
	"bower_components",
	".npm",
	".yarn",

	// Editors
	".idea",
	".vscode",
	".vs",
	"*.swp",
	"*.swo",
	"*~",

	// OS files
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",

	// Environments and caches
	"__pycache__",
	".venv",
	"venv",
	".cache",
	".parcel-cache",
	".next",
	".nuxt",
	".nyc_output",

	// Viewer state
	"*.log",
	"*.db",
	"*.db-wal",
	"*.db-shm",
}

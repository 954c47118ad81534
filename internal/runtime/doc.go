// Package runtime runs the external tools the CLI drives: git, the package
// manager and the codemod runner. Commands go through the Runner interface so
// services can be exercised in tests without the real binaries.
package runtime

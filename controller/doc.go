// Package controller provides the top-level facade for an ada-trace
// capture session: construct a Controller with New, call Start once
// hooks are wired, and call Shutdown to drain and flush on exit.
package controller

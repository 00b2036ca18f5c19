// Package theme resolves the viewer's auto, light or dark preference against
// the host theme and maps it to diagram and palette settings.
package theme

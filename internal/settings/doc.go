/*
Package settings holds the viewer preferences.

Only the allow-listed keys exist: theme, fontSize, fontFamily, contentWidth,
tocVisible and maxTabs. Every write is validated. FileStore persists them as
YAML, TOML or JSON depending on the file extension.
*/
package settings

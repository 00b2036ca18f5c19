/*
Package tabs is the bounded set of open documents.

Each tab is keyed by an id derived from its path, so reopening a path
reactivates the existing tab. When the store is full, opening a new path
evicts the least recently activated inactive tab. The active tab is never
evicted. Closing or evicting a tab drops its content, cached fragment and
scroll offset.
*/
package tabs

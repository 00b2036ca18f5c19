// Package ws is the host message channel over WebSocket.
//
// Each connection gets its own viewer session. Inbound text frames are JSON
// commands and outbound frames are the session's events.
//
// Message Types (Client → Server):
//   - openDocument, updateDocument, closeDocument: document lifecycle
//   - openPath: load a document from the server's roots
//   - initSettings, changeSetting, themeToggle, toggleOutline: preferences
//   - hostTheme: the host switched between light and dark
//   - activateTab, closeTab, viewport, navigate: view state
//
// Message Types (Server → Client):
//   - ready: session started
//   - view: full snapshot after every display change
//   - tabActivated, allTabsClosed: document lifecycle
//   - settingChanged: a preference to persist
//   - scrollTo, outlineActive: outline navigation
//
// Unknown message types are ignored. Documents opened by path are reloaded
// when their file changes.
//
// Example Usage:
//
//	handler := ws.NewHandler(newSession, fileSource, ws.DefaultConfig(), logger)
//	router.GET("/stream", handler.HandleConnection)
package ws

/*
Package viewer runs one viewer session.

A Session receives inbound commands (open, update and close documents,
switch tabs, change settings, report the viewport) and answers with
outbound events. Every command that changes what is shown ends in a display
pass: the active tab's fragment is rendered or taken from cache, attached
to the document, its diagram and chart blocks are materialized, the outline
is rebuilt and a view snapshot is emitted.

	cmd, err := viewer.DecodeCommand(data)
	if errors.Is(err, viewer.ErrUnknownCommand) {
		return // ignored
	}
	err = session.Handle(ctx, cmd)
*/
package viewer

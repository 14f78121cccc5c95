// Package journal keeps a history of raised alerts.
//
// FileJournal appends one protojson line per alert to a text file.
// SQLiteJournal stores alerts in a table using the pure Go modernc.org/sqlite
// driver. Both satisfy the Journal interface used by the monitor service.
package journal

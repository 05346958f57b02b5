package platform

// Package platform contains OS integration glue: filesystem helpers and
// opening/revealing downloaded files with the system file manager.

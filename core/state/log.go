package state

import "github.com/evmts/voltaire-sub004/log"

// logger is this package's child logger: Store and EVM share it rather
// than deriving their own, since both speak for the same "state" concern
// from the interpreter's point of view.
var logger = log.Default().Module("state")

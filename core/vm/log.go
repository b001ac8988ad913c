package vm

import "github.com/evmts/voltaire-sub004/log"

// logger is the package's child logger, obtained once at package init
// rather than re-derived per call. Analyze and Run use it for the
// occasional frame-boundary event; neither logs per opcode, since that
// would dominate the interpreter's own dispatch cost.
var logger = log.Default().Module("vm")

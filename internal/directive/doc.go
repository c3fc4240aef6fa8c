// Package directive extracts invocation variants from annotated test sources.
//
// A test source declares the argument lists it should be run with through
// comment directives, one per line:
//
//	//TESTARGS(name="blocked") -ceed {ceed_resource} -problem blocked
//	C_TESTARGS(name="bp1") -ceed {ceed_resource} -problem bp1
//	! TESTARGS(name="f90") {ceed_resource}
//
// Each source dialect is identified by file extension and owns its directive
// token. The literal {ceed_resource} placeholder is replaced with a backend
// identifier by the harness before the test binary is spawned.
//
// Parsing is permissive: lines that do not begin with the dialect's token are
// ignored and a malformed name group never fails the parse.
package directive

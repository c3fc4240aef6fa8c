package policy

// Default returns the compiled-in rule set.
func Default() *Rules {
	occa := []string{"occa"}

	return &Rules{
		Skip: []SkipRule{
			{Prefix: "t4", Backends: occa},
			{Prefix: "t5", Backends: occa},
			{Prefix: "ex", Backends: occa},
			{Prefix: "mfem", Backends: occa},
			{Prefix: "nek", Backends: occa},
			{Prefix: "petsc-", Backends: occa},
			{Prefix: "fluids-", Backends: occa},
			{Prefix: "solids-", Backends: occa},
			{Prefix: "t318", Backends: []string{"/gpu/cuda/ref"}},
			{Prefix: "t506", Backends: []string{"/gpu/cuda/shared"}},
		},
		Limitations: []Limitation{
			{Substring: "OCCA backend failed to use", Reason: "occa mode not supported"},
			{Substring: "Backend does not implement", Reason: "not implemented"},
			{Substring: "Can only provide HOST memory for this backend", Reason: "device memory not supported"},
			{Substring: "Test not implemented in single precision", Reason: "not implemented"},
		},
		RequiredFailures: []RequiredFailure{
			{Prefixes: []string{"t006", "t007"}, Required: "No suitable backend:"},
			{Prefixes: []string{"t008"}, Required: "Available backend resources:"},
			{Prefixes: []string{"t110", "t111", "t112", "t113", "t114"}, Required: "Cannot grant CeedVector array access"},
			{Prefixes: []string{"t115"}, Required: "Cannot grant CeedVector read-only array access, the access lock is already in use"},
			{Prefixes: []string{"t116"}, Required: "Cannot destroy CeedVector, the writable access lock is in use"},
			{Prefixes: []string{"t117"}, Required: "Cannot restore CeedVector array access, access was not granted"},
			{Prefixes: []string{"t118"}, Required: "Cannot sync CeedVector, the access lock is already in use"},
			{Prefixes: []string{"t215"}, Required: "Cannot destroy CeedElemRestriction, a process has read access to the offset data"},
			{Prefixes: []string{"t303"}, Required: "Length of input/output vectors incompatible with basis dimensions"},
			{Prefixes: []string{"t408"}, Required: "CeedQFunctionContextGetData(): Cannot grant CeedQFunctionContext data access, a process has read access"},
			// Only memcheck backends detect writes through a read-only context view.
			{Prefixes: []string{"t409"}, Backends: []string{"memcheck"}, Required: "Context data changed while accessed in read-only mode"},
		},
		StdoutExempt: []string{"t003"},
	}
}

package config

// FileName is the manifest marker file that identifies a project root.
const FileName = "ao.toml"

// Default manifest values.
const (
	DefaultCompiler = "python -m grpc_tools.protoc"
	DefaultContract = "model-interface/anops.proto"
	DefaultTool     = "docker"
	DefaultTag      = "latest"
)

// DefaultTargets are the services that consume generated interface bindings.
var DefaultTargets = []string{"api-service", "model-service"}

// applyDefaults fills optional sections that were left empty.
func (m *manifest) applyDefaults() {
	if m.Codegen.Compiler == "" {
		m.Codegen.Compiler = DefaultCompiler
	}
	if m.Codegen.Contract == "" {
		m.Codegen.Contract = DefaultContract
	}
	if m.Codegen.Targets == nil {
		m.Codegen.Targets = append([]string(nil), DefaultTargets...)
	}
	if m.Build.Tool == "" {
		m.Build.Tool = DefaultTool
	}
	if m.Build.Tag == "" {
		m.Build.Tag = DefaultTag
	}
	if m.Tasks == nil {
		m.Tasks = map[string][]string{}
	}
}

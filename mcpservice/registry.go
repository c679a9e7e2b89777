package mcpservice

// Registry pairs the tool and resource containers that capability units
// register into.
type Registry struct {
	tools     *ToolsContainer
	resources *ResourcesContainer
}

// NewRegistry returns a Registry with empty containers.
func NewRegistry() *Registry {
	return &Registry{
		tools:     NewToolsContainer(),
		resources: NewResourcesContainer(),
	}
}

// RegisterTool adds a tool; duplicates fail with ErrDuplicateTool.
func (r *Registry) RegisterTool(t StaticTool) error {
	return r.tools.RegisterTool(t)
}

// RegisterResource adds a resource; duplicates fail with ErrDuplicateResource.
func (r *Registry) RegisterResource(res StaticResource) error {
	return r.resources.RegisterResource(res)
}

func (r *Registry) Tools() *ToolsContainer { return r.tools }

func (r *Registry) Resources() *ResourcesContainer { return r.resources }

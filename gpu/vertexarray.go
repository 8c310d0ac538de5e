package gpu

// VertexArrays is the vertex-array capability of a context. It is selected
// once per context by SelectVertexArrays; callers never branch on Version.
type VertexArrays interface {
	// Supported reports whether bound attribute state survives unbinding.
	Supported() bool
	Create() VertexArray
	Bind(v VertexArray)
	Unbind()
	Delete(v VertexArray)
}

// SelectVertexArrays picks the capability variant for ctx: real vertex-array
// objects when the context (version 2) or its OES extension (version 1)
// provides them, otherwise a no-op variant.
func SelectVertexArrays(ctx Context) VertexArrays {
	if ctx.Version() >= Version2 {
		if api, ok := ctx.(VertexArrayAPI); ok {
			return objectVertexArrays{api: api}
		}
	}
	if api, ok := ctx.Extension(ExtVertexArrayObject).(VertexArrayAPI); ok {
		return objectVertexArrays{api: api}
	}
	return noVertexArrays{}
}

type objectVertexArrays struct {
	api VertexArrayAPI
}

func (o objectVertexArrays) Supported() bool     { return true }
func (o objectVertexArrays) Create() VertexArray { return o.api.CreateVertexArray() }
func (o objectVertexArrays) Bind(v VertexArray)  { o.api.BindVertexArray(v) }
func (o objectVertexArrays) Unbind()             { o.api.BindVertexArray(0) }

func (o objectVertexArrays) Delete(v VertexArray) {
	if v != 0 {
		o.api.DeleteVertexArray(v)
	}
}

// noVertexArrays is used when neither the context nor an extension offers
// vertex-array objects. Attribute state then lives on the context itself.
type noVertexArrays struct{}

func (noVertexArrays) Supported() bool     { return false }
func (noVertexArrays) Create() VertexArray { return 0 }
func (noVertexArrays) Bind(VertexArray)    {}
func (noVertexArrays) Unbind()             {}
func (noVertexArrays) Delete(VertexArray)  {}

package decl

type platformClass struct {
	super  string
	ifaces []string
	iface  bool
}

// platform lists the java.lang and java.util classes that most often meet at
// merge points, so common super types resolve without the class path.
var platform = map[string]platformClass{
	"java.lang.Object":        {},
	"java.lang.String":        {super: "java.lang.Object", ifaces: []string{"java.io.Serializable", "java.lang.Comparable", "java.lang.CharSequence"}},
	"java.lang.StringBuilder": {super: "java.lang.Object", ifaces: []string{"java.io.Serializable", "java.lang.CharSequence"}},
	"java.lang.Number":        {super: "java.lang.Object", ifaces: []string{"java.io.Serializable"}},
	"java.lang.Integer":       {super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Long":          {super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Short":         {super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Byte":          {super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Float":         {super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Double":        {super: "java.lang.Number", ifaces: []string{"java.lang.Comparable"}},
	"java.lang.Boolean":       {super: "java.lang.Object", ifaces: []string{"java.io.Serializable", "java.lang.Comparable"}},
	"java.lang.Character":     {super: "java.lang.Object", ifaces: []string{"java.io.Serializable", "java.lang.Comparable"}},

	"java.lang.Throwable":                     {super: "java.lang.Object", ifaces: []string{"java.io.Serializable"}},
	"java.lang.Exception":                     {super: "java.lang.Throwable"},
	"java.lang.Error":                         {super: "java.lang.Throwable"},
	"java.lang.RuntimeException":              {super: "java.lang.Exception"},
	"java.lang.IllegalArgumentException":      {super: "java.lang.RuntimeException"},
	"java.lang.IllegalStateException":         {super: "java.lang.RuntimeException"},
	"java.lang.NullPointerException":          {super: "java.lang.RuntimeException"},
	"java.lang.ClassCastException":            {super: "java.lang.RuntimeException"},
	"java.lang.ArithmeticException":           {super: "java.lang.RuntimeException"},
	"java.lang.IndexOutOfBoundsException":     {super: "java.lang.RuntimeException"},
	"java.lang.UnsupportedOperationException": {super: "java.lang.RuntimeException"},
	"java.lang.InterruptedException":          {super: "java.lang.Exception"},
	"java.io.IOException":                     {super: "java.lang.Exception"},

	"java.lang.Comparable":   {iface: true},
	"java.lang.CharSequence": {iface: true},
	"java.lang.Cloneable":    {iface: true},
	"java.lang.Runnable":     {iface: true},
	"java.lang.Iterable":     {iface: true},
	"java.io.Serializable":   {iface: true},

	"java.util.Collection":         {iface: true, ifaces: []string{"java.lang.Iterable"}},
	"java.util.List":               {iface: true, ifaces: []string{"java.util.Collection"}},
	"java.util.Set":                {iface: true, ifaces: []string{"java.util.Collection"}},
	"java.util.Map":                {iface: true},
	"java.util.AbstractCollection": {super: "java.lang.Object", ifaces: []string{"java.util.Collection"}},
	"java.util.AbstractList":       {super: "java.util.AbstractCollection", ifaces: []string{"java.util.List"}},
	"java.util.ArrayList":          {super: "java.util.AbstractList", ifaces: []string{"java.util.List", "java.lang.Cloneable", "java.io.Serializable"}},
	"java.util.LinkedList":         {super: "java.util.AbstractList", ifaces: []string{"java.util.List", "java.lang.Cloneable", "java.io.Serializable"}},
	"java.util.HashMap":            {super: "java.lang.Object", ifaces: []string{"java.util.Map", "java.lang.Cloneable", "java.io.Serializable"}},
	"java.util.HashSet":            {super: "java.lang.Object", ifaces: []string{"java.util.Set", "java.lang.Cloneable", "java.io.Serializable"}},
}

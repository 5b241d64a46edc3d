package render

// Theme holds colors for graph rendering.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by kind.
	EdgeTaken string // conditional branch taken
	EdgeFall  string // fall-through and false side
	EdgeJump  string // unconditional jump
	EdgeCase  string // switch dispatch
	EdgeCatch string // exception edge
	EdgeBack  string // loop back edge

	// Node accents.
	EntryBorder string
	TermFill    string // return and throw blocks
	HandlerFill string // exception handler entries

	// Cluster styling, one border per structure kind.
	ClusterLoop   string
	ClusterIf     string
	ClusterSwitch string
	ClusterTry    string
	ClusterLabel  string
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "white",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeTaken: "#0B3D91", // NASA blue
	EdgeFall:  "#FC3D21", // NASA red
	EdgeJump:  "#424242", // dark gray
	EdgeCase:  "#00695C", // teal
	EdgeCatch: "#9E9E9E", // gray
	EdgeBack:  "#E65100", // deep orange

	EntryBorder: "#0B3D91",
	TermFill:    "#ECEFF1", // blue-gray 50
	HandlerFill: "#FFF3E0", // orange 50

	ClusterLoop:   "#E65100",
	ClusterIf:     "#0B3D91",
	ClusterSwitch: "#00695C",
	ClusterTry:    "#9E9E9E",
	ClusterLabel:  "#757575",
}

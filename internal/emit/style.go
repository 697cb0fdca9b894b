package emit

import "regexp"

// nodeStyle is the attribute set applied when its pattern matches the node
// label. First match wins, so more specific patterns come first.
type nodeStyle struct {
	pattern *regexp.Regexp
	attrs   []attr
}

var styleMap = []nodeStyle{
	{regexp.MustCompile(`FSM Controller`), []attr{
		{"shape", "Mdiamond"}, {"style", "filled"}, {"fillcolor", "skyblue"}}},
	{regexp.MustCompile(`Counter`), []attr{
		{"shape", "doubleoctagon"}, {"style", "filled"}, {"fillcolor", "lightgreen"}}},
	{regexp.MustCompile(`Datapath`), []attr{
		{"shape", "octagon"}, {"style", "filled"}, {"fillcolor", "lightcoral"}}},
	{regexp.MustCompile(`Sequential Logic`), []attr{
		{"shape", "box"}, {"style", "filled,rounded"}, {"fillcolor", "darkseagreen1"}}},
	{regexp.MustCompile(`Combinational Logic`), []attr{
		{"shape", "box"}, {"style", "filled,rounded"}, {"fillcolor", "lightgoldenrod"}}},
	{regexp.MustCompile(`^if `), []attr{
		{"shape", "diamond"}, {"style", "filled"}, {"fillcolor", "lightcyan"}, {"color", "teal"}}},
	{regexp.MustCompile(`^case `), []attr{
		{"shape", "diamond"}, {"style", "filled"}, {"fillcolor", "lightcyan"}, {"color", "teal"}}},
	{regexp.MustCompile(`<=`), []attr{
		{"shape", "box3d"}, {"style", "filled"}, {"fillcolor", "lightcoral"}, {"color", "darkred"}}},
	{regexp.MustCompile(`=`), []attr{
		{"shape", "box3d"}, {"style", "filled"}, {"fillcolor", "lightsalmon"}, {"color", "darkorange"}}},
}

// styleFor returns the style attributes for a node label, label first.
func styleFor(label string) []attr {
	attrs := []attr{{"label", label}}
	for _, s := range styleMap {
		if s.pattern.MatchString(label) {
			attrs = append(attrs, s.attrs...)
			break
		}
	}
	return attrs
}

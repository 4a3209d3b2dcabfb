package schema

import "sort"

// shape is the declared structure of a filter receiver or argument.
type shape int

const (
	shapeAny shape = iota
	shapeScalar
	shapeString
	shapeNumber
	shapeBoolean
	shapeList
	shapeStringList
	shapeNumberList
	shapeDict
)

func (s shape) build() *Var {
	switch s {
	case shapeScalar:
		return Scalar()
	case shapeString:
		return String()
	case shapeNumber:
		return Number()
	case shapeBoolean:
		return Boolean()
	case shapeList:
		return ListOf(Unknown())
	case shapeStringList:
		return ListOf(String())
	case shapeNumberList:
		return ListOf(Number())
	case shapeDict:
		return DictOf(nil)
	}

	return Unknown()
}

// output describes how a rule's result relates to its receiver.
type output int

const (
	outSame output = iota
	outElement
	outList
	outBatch
	outGroups
	outString
	outNumber
	outBoolean
	outPairs
	outStringList
	outNumberList
	outUnknownList
	outUnknown
	outKwargsDict
	outKeyValueList
	outArgsMerge
)

// rule is the typing rule of a filter, global function or method.
type rule struct {
	in        shape
	out       output
	args      []shape
	kwargs    map[string]shape
	// attribute= names a field of every receiver element.
	attribute bool
}

// declared returns the structure the rule's result always has.
func (r rule) declared() *Var {
	switch r.out {
	case outSame:
		return r.in.build()
	case outList, outUnknownList:
		return ListOf(Unknown())
	case outBatch:
		return ListOf(ListOf(Unknown()))
	case outGroups:
		return ListOf(TupleOf(Unknown(), ListOf(Unknown())))
	case outString:
		return String()
	case outNumber:
		return Number()
	case outBoolean:
		return Boolean()
	case outPairs:
		return ListOf(TupleOf(String(), Unknown()))
	case outStringList:
		return ListOf(String())
	case outNumberList:
		return ListOf(Number())
	case outKwargsDict:
		return DictOf(nil)
	case outKeyValueList:
		return ListOf(DictOf(map[string]*Var{"key": String(), "value": Unknown()}))
	}

	return Unknown()
}

// receiverWant derives the receiver constraint implied by the required
// result structure.
func (r rule) receiverWant(want *Var) *Var {
	switch r.out {
	case outSame:
		return want.Clone()
	case outElement:
		return ListOf(want.Clone())
	case outList:
		if want.Kind == KindList {
			return want.Clone()
		}
	case outBatch:
		if want.Kind == KindList && want.Elem.Kind == KindList {
			return ListOf(want.Elem.Elem.Clone())
		}
	case outGroups:
		if want.Kind == KindList && want.Elem.Kind == KindTuple && len(want.Elem.Items) == 2 &&
			want.Elem.Items[1].Kind == KindList {
			return ListOf(want.Elem.Items[1].Elem.Clone())
		}
	}

	return Unknown()
}

// result builds the rule's result from the inferred receiver and arguments.
func (r rule) result(recv *Var, args []*Var, kwargs map[string]*Var) *Var {
	switch r.out {
	case outSame:
		return recv.Clone()
	case outElement:
		return elementOf(recv)
	case outList:
		switch recv.Kind {
		case KindList:
			return ListOf(recv.Elem.Clone())
		case KindDictionary:
			return ListOf(String())
		}
	case outBatch:
		if recv.Kind == KindList {
			return ListOf(ListOf(recv.Elem.Clone()))
		}
	case outGroups:
		if recv.Kind == KindList {
			return ListOf(TupleOf(Unknown(), ListOf(recv.Elem.Clone())))
		}
	case outKwargsDict:
		fields := make(map[string]*Var, len(kwargs))
		for k, v := range kwargs {
			f := v.Clone()
			f.Label = k
			fields[k] = f
		}

		return DictOf(fields)
	case outArgsMerge:
		out := Unknown()

		for _, a := range args {
			merged, err := Merge(out, a.shape())
			if err != nil {
				return Unknown()
			}

			out = merged
		}

		return out
	}

	return r.declared()
}

func elementOf(v *Var) *Var {
	switch v.Kind {
	case KindList:
		return v.Elem.Clone()
	case KindTuple:
		out := Unknown()

		for _, it := range v.Items {
			merged, err := Merge(out, it.shape())
			if err != nil {
				return Unknown()
			}

			out = merged
		}

		return out
	}

	return Unknown()
}

func (r rule) argShape(i int) shape {
	if i < len(r.args) {
		return r.args[i]
	}

	return shapeAny
}

func (r rule) kwargShape(name string) shape {
	return r.kwargs[name]
}

var stringRule = rule{in: shapeString, out: outString}

var filters = map[string]rule{
	// Jinja builtins.
	"abs":            {in: shapeNumber, out: outSame},
	"attr":           {in: shapeAny, out: outUnknown, args: []shape{shapeString}},
	"batch":          {in: shapeList, out: outBatch, args: []shape{shapeNumber}},
	"capitalize":     stringRule,
	"center":         {in: shapeString, out: outString, args: []shape{shapeNumber}},
	"dictsort":       {in: shapeDict, out: outPairs, args: []shape{shapeBoolean, shapeString}},
	"escape":         {in: shapeAny, out: outString},
	"e":              {in: shapeAny, out: outString},
	"filesizeformat": {in: shapeNumber, out: outString, args: []shape{shapeBoolean}},
	"first":          {in: shapeList, out: outElement},
	"float":          {in: shapeAny, out: outNumber, args: []shape{shapeNumber}},
	"forceescape":    {in: shapeAny, out: outString},
	"format":         {in: shapeString, out: outString},
	"groupby":        {in: shapeList, out: outGroups},
	"indent":         {in: shapeString, out: outString, args: []shape{shapeNumber, shapeBoolean, shapeBoolean}},
	"int":            {in: shapeAny, out: outNumber, args: []shape{shapeNumber, shapeNumber}},
	"items":          {in: shapeDict, out: outPairs},
	"join":           {in: shapeStringList, out: outString, args: []shape{shapeString}, attribute: true},
	"last":           {in: shapeList, out: outElement},
	"length":         {in: shapeAny, out: outNumber},
	"count":          {in: shapeAny, out: outNumber},
	"list":           {in: shapeAny, out: outList},
	"lower":          stringRule,
	"map":            {in: shapeList, out: outUnknownList, attribute: true},
	"max":            {in: shapeList, out: outElement},
	"min":            {in: shapeList, out: outElement},
	"pprint":         {in: shapeAny, out: outString},
	"random":         {in: shapeList, out: outElement},
	"reject":         {in: shapeList, out: outList},
	"rejectattr":     {in: shapeList, out: outList},
	"replace":        {in: shapeString, out: outString, args: []shape{shapeString, shapeString, shapeNumber}},
	"reverse":        {in: shapeAny, out: outSame},
	"round":          {in: shapeNumber, out: outNumber, args: []shape{shapeNumber, shapeString}},
	"safe":           {in: shapeAny, out: outSame},
	"select":         {in: shapeList, out: outList},
	"selectattr":     {in: shapeList, out: outList},
	"slice":          {in: shapeList, out: outBatch, args: []shape{shapeNumber}},
	"sort":           {in: shapeList, out: outList},
	"string":         {in: shapeAny, out: outString},
	"striptags":      stringRule,
	"sum":            {in: shapeList, out: outNumber, attribute: true},
	"title":          stringRule,
	"tojson":         {in: shapeAny, out: outString},
	"trim":           stringRule,
	"truncate":       {in: shapeString, out: outString, args: []shape{shapeNumber, shapeBoolean, shapeString}},
	"unique":         {in: shapeList, out: outList},
	"upper":          stringRule,
	"urlencode":      {in: shapeAny, out: outString},
	"wordcount":      {in: shapeString, out: outNumber},
	"wordwrap":       {in: shapeString, out: outString, args: []shape{shapeNumber, shapeBoolean}},
	"xmlattr":        {in: shapeDict, out: outString},

	// Ansible.
	"b64decode":     stringRule,
	"b64encode":     stringRule,
	"basename":      stringRule,
	"bool":          {in: shapeAny, out: outBoolean},
	"combine":       {in: shapeDict, out: outSame, args: []shape{shapeDict, shapeDict}},
	"dict2items":    {in: shapeDict, out: outKeyValueList},
	"difference":    {in: shapeList, out: outList, args: []shape{shapeList}},
	"dirname":       stringRule,
	"flatten":       {in: shapeList, out: outUnknownList},
	"from_json":     {in: shapeString, out: outUnknown},
	"from_yaml":     {in: shapeString, out: outUnknown},
	"intersect":     {in: shapeList, out: outList, args: []shape{shapeList}},
	"items2dict":    {in: shapeList, out: outKwargsDict},
	"mandatory":     {in: shapeAny, out: outSame},
	"quote":         stringRule,
	"regex_replace": {in: shapeString, out: outString, args: []shape{shapeString, shapeString}},
	"regex_search":  {in: shapeString, out: outUnknown, args: []shape{shapeString}},
	"ternary":       {in: shapeAny, out: outArgsMerge},
	"to_json":       {in: shapeAny, out: outString},
	"to_nice_json":  {in: shapeAny, out: outString},
	"to_nice_yaml":  {in: shapeAny, out: outString},
	"to_yaml":       {in: shapeAny, out: outString},
	"union":         {in: shapeList, out: outList, args: []shape{shapeList}},
}

var functions = map[string]rule{
	"range":     {out: outNumberList, args: []shape{shapeNumber, shapeNumber, shapeNumber}},
	"lipsum":    {out: outString, args: []shape{shapeNumber, shapeBoolean, shapeNumber, shapeNumber}, kwargs: map[string]shape{"n": shapeNumber, "html": shapeBoolean, "min": shapeNumber, "max": shapeNumber}},
	"dict":      {out: outKwargsDict},
	"namespace": {out: outKwargsDict},
	"cycler":    {out: outUnknown},
	"joiner":    {out: outUnknown, args: []shape{shapeString}},
	"lookup":    {out: outUnknown, args: []shape{shapeString}},
	"query":     {out: outUnknownList, args: []shape{shapeString}},
	"q":         {out: outUnknownList, args: []shape{shapeString}},
	"super":     {out: outString},
	"caller":    {out: outString},
}

// methods lists candidate rules per method name; the first one whose
// receiver shape fits the receiver wins.
var methods = map[string][]rule{
	"keys":       {{in: shapeDict, out: outStringList}},
	"values":     {{in: shapeDict, out: outUnknownList}},
	"items":      {{in: shapeDict, out: outPairs}},
	"get":        {{in: shapeDict, out: outUnknown, args: []shape{shapeString}}},
	"update":     {{in: shapeDict, out: outUnknown, args: []shape{shapeDict}}},
	"setdefault": {{in: shapeDict, out: outUnknown, args: []shape{shapeString}}},

	"split":      {{in: shapeString, out: outStringList, args: []shape{shapeString, shapeNumber}}},
	"rsplit":     {{in: shapeString, out: outStringList, args: []shape{shapeString, shapeNumber}}},
	"splitlines": {{in: shapeString, out: outStringList}},
	"startswith": {{in: shapeString, out: outBoolean, args: []shape{shapeString}}},
	"endswith":   {{in: shapeString, out: outBoolean, args: []shape{shapeString}}},
	"lower":      {stringRule},
	"upper":      {stringRule},
	"strip":      {{in: shapeString, out: outString, args: []shape{shapeString}}},
	"lstrip":     {{in: shapeString, out: outString, args: []shape{shapeString}}},
	"rstrip":     {{in: shapeString, out: outString, args: []shape{shapeString}}},
	"replace":    {{in: shapeString, out: outString, args: []shape{shapeString, shapeString}}},
	"title":      {stringRule},
	"capitalize": {stringRule},
	"format":     {stringRule},
	"join":       {{in: shapeString, out: outString, args: []shape{shapeList}}},
	"isdigit":    {{in: shapeString, out: outBoolean}},
	"isalpha":    {{in: shapeString, out: outBoolean}},
	"find":       {{in: shapeString, out: outNumber, args: []shape{shapeString}}},

	"append": {{in: shapeList, out: outUnknown}},
	"extend": {{in: shapeList, out: outUnknown, args: []shape{shapeList}}},
	"insert": {{in: shapeList, out: outUnknown, args: []shape{shapeNumber}}},
	"remove": {{in: shapeList, out: outUnknown}},
	"pop":    {{in: shapeList, out: outUnknown, args: []shape{shapeNumber}}, {in: shapeDict, out: outUnknown, args: []shape{shapeString}}},
	"index":  {{in: shapeList, out: outNumber}, {in: shapeString, out: outNumber, args: []shape{shapeString}}},
	"count":  {{in: shapeList, out: outNumber}, {in: shapeString, out: outNumber, args: []shape{shapeString}}},
}

// lookupMethod picks the rule for name given the receiver's current
// structure, which may be nil when nothing is known yet.
func lookupMethod(name string, recv *Var) (rule, bool) {
	candidates, ok := methods[name]
	if !ok {
		return rule{}, false
	}

	if recv != nil {
		for _, r := range candidates {
			if compatible(recv, r.in.build()) {
				return r, true
			}
		}
	}

	return candidates[0], true
}

// Signature describes a registered filter or function.
type Signature struct {
	Name   string
	Input  *Var
	Output *Var
}

func signature(name string, r rule) Signature {
	return Signature{Name: name, Input: r.in.build(), Output: r.declared()}
}

// LookupFilter returns the signature of a registered filter.
func LookupFilter(name string) (Signature, bool) {
	r, ok := filters[name]
	if !ok && name != "default" && name != "d" {
		return Signature{}, false
	}

	if !ok {
		r = rule{in: shapeAny, out: outSame}
	}

	return signature(name, r), true
}

// LookupFunction returns the signature of a registered global function.
func LookupFunction(name string) (Signature, bool) {
	r, ok := functions[name]
	if !ok {
		return Signature{}, false
	}

	return signature(name, r), true
}

// Filters returns the sorted names of all registered filters.
func Filters() []string {
	names := make([]string, 0, len(filters)+2)
	for name := range filters {
		names = append(names, name)
	}

	names = append(names, "default", "d")
	sort.Strings(names)

	return names
}

// Functions returns the sorted names of all registered global functions.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

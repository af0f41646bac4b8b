package climate

// Variant names the cache dictionary a resolved texture belongs to.
type Variant int

const (
	General Variant = iota
	WinterVariant
	RainVariant
)

func (v Variant) String() string {
	switch v {
	case WinterVariant:
		return "winter"
	case RainVariant:
		return "rain"
	default:
		return "general"
	}
}

// VariantFor maps a weather onto the dictionary a read under that weather
// prefers.
func VariantFor(w Weather) Variant {
	switch w {
	case Winter:
		return WinterVariant
	case Rain:
		return RainVariant
	default:
		return General
	}
}

// Substitution is the outcome of resolving an archive under a climate.
type Substitution struct {
	// PassThrough means the archive is used as is and keyed directly.
	PassThrough bool
	Set         Set
	// Archive is the concrete archive to decode.
	Archive int
	Variant Variant
}

type exceptionKey struct {
	climate Type
	set     Set
}

// Swamp has no variants for these sets at all.
var passThroughExceptions = map[exceptionKey]bool{
	{Swamp, TempleInterior}: true,
	{Swamp, MarbleFloors}:   true,
}

// These climates lack winter variants for these sets.
var noWinterExceptions = map[exceptionKey]bool{
	{Desert, Castle}:     true,
	{Desert, MagesGuild}: true,
	{Swamp, Castle}:      true,
	{Swamp, MagesGuild}:  true,
}

// Resolve computes which archive to decode for archive under ctx.
func Resolve(archive int, ctx Context) Substitution {
	set := SetFor(archive)
	if set == SetNone || ctx.Type == None {
		return Substitution{PassThrough: true, Set: set, Archive: archive}
	}

	ek := exceptionKey{ctx.Type, set}
	if passThroughExceptions[ek] {
		return Substitution{PassThrough: true, Set: set, Archive: archive}
	}

	winter := set.SupportsWinter() && !noWinterExceptions[ek]
	rain := set.SupportsRain()

	sub := Substitution{Set: set, Archive: int(ctx.Type) + int(set)}
	switch {
	case ctx.Weather == Winter && winter:
		sub.Archive += int(Winter)
		sub.Variant = WinterVariant
	case ctx.Weather == Rain && rain:
		sub.Archive += int(Rain)
		sub.Variant = RainVariant
	}
	return sub
}

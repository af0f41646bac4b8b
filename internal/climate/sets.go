package climate

// Set is a texture category. Its value is the archive number modulo 100.
type Set int

const SetNone Set = -1

// Exterior sets.
const (
	Terrain         Set = 2
	Ruins           Set = 7
	Castle          Set = 9
	CityA           Set = 12
	CityB           Set = 14
	CityWalls       Set = 17
	Farm            Set = 26
	Fences          Set = 29
	MagesGuild      Set = 35
	Manor           Set = 38
	MerchantHomes   Set = 42
	TavernExteriors Set = 58
	TempleExteriors Set = 61
	Village         Set = 64
	Roofs           Set = 69
)

// Interior sets.
const (
	PalaceInterior        Set = 11
	CityInterior          Set = 16
	CryptA                Set = 19
	CryptB                Set = 20
	DungeonsA             Set = 22
	DungeonsB             Set = 23
	DungeonsC             Set = 24
	DungeonsNEWCs         Set = 25
	FarmInterior          Set = 28
	MagesGuildInterior    Set = 37
	ManorInterior         Set = 40
	MerchantHomesInterior Set = 44
	MarbleFloors          Set = 45
	Paintings             Set = 54
	Mines                 Set = 56
	Caves                 Set = 57
	TavernInterior        Set = 60
	TempleInterior        Set = 63
	VillageInterior       Set = 66
	Sewer                 Set = 68
)

type setInfo struct {
	name   string
	winter bool
	rain   bool
}

var sets = map[Set]setInfo{
	Terrain: {"terrain", true, true},

	Ruins:           {"ruins", true, false},
	Castle:          {"castle", true, false},
	CityA:           {"city-a", true, false},
	CityB:           {"city-b", true, false},
	CityWalls:       {"city-walls", true, false},
	Farm:            {"farm", true, false},
	Fences:          {"fences", true, false},
	MagesGuild:      {"mages-guild", true, false},
	Manor:           {"manor", true, false},
	MerchantHomes:   {"merchant-homes", true, false},
	TavernExteriors: {"tavern-exteriors", true, false},
	TempleExteriors: {"temple-exteriors", true, false},
	Village:         {"village", true, false},
	Roofs:           {"roofs", true, false},

	PalaceInterior:        {"palace-interior", false, false},
	CityInterior:          {"city-interior", false, false},
	CryptA:                {"crypt-a", false, false},
	CryptB:                {"crypt-b", false, false},
	DungeonsA:             {"dungeons-a", false, false},
	DungeonsB:             {"dungeons-b", false, false},
	DungeonsC:             {"dungeons-c", false, false},
	DungeonsNEWCs:         {"dungeons-newcs", false, false},
	FarmInterior:          {"farm-interior", false, false},
	MagesGuildInterior:    {"mages-guild-interior", false, false},
	ManorInterior:         {"manor-interior", false, false},
	MerchantHomesInterior: {"merchant-homes-interior", false, false},
	MarbleFloors:          {"marble-floors", false, false},
	Paintings:             {"paintings", false, false},
	Mines:                 {"mines", false, false},
	Caves:                 {"caves", false, false},
	TavernInterior:        {"tavern-interior", false, false},
	TempleInterior:        {"temple-interior", false, false},
	VillageInterior:       {"village-interior", false, false},
	Sewer:                 {"sewer", false, false},
}

// SetFor returns the climate set of an archive, or SetNone.
func SetFor(archive int) Set {
	if archive < 0 {
		return SetNone
	}
	s := Set(archive % 100)
	if _, ok := sets[s]; !ok {
		return SetNone
	}
	return s
}

// SupportsWinter reports whether the set has winter variants in the table.
func (s Set) SupportsWinter() bool { return sets[s].winter }

// SupportsRain reports whether the set has rain variants in the table.
func (s Set) SupportsRain() bool { return sets[s].rain }

func (s Set) String() string {
	if info, ok := sets[s]; ok {
		return info.name
	}
	return "none"
}

// Sets returns every known climate set.
func Sets() []Set {
	out := make([]Set, 0, len(sets))
	for s := range sets {
		out = append(out, s)
	}
	return out
}

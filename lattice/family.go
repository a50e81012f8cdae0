package lattice

// elegantFamilies maps Elegant element type names onto their MAD-X
// equivalents. Types without an entry pass through unchanged, so MAD-X
// files (already in the target vocabulary) are unaffected.
var elegantFamilies = map[string]string{
	"KQUAD":  "QUADRUPOLE",
	"KSEXT":  "SEXTUPOLE",
	"DRIF":   "DRIFT",
	"RFCA":   "RFCAVITY",
	"CSBEND": "SBEND",
	"MONI":   "MONITOR",
	"WATCH":  "MARKER",
	"EVKICK": "VKICKER",
	"EHKICK": "HKICKER",
	"MARK":   "MARKER",
}

// extraFamilies holds user-supplied conversion entries loaded from the
// config file. Entries here take precedence over the built-in table.
var extraFamilies = map[string]string{}

// CanonicalFamily converts an element type name to its MAD-X family
// name. Unknown names are returned unchanged.
func CanonicalFamily(family string) string {
	if mapped, ok := extraFamilies[family]; ok {
		return mapped
	}
	if mapped, ok := elegantFamilies[family]; ok {
		return mapped
	}
	return family
}

// RegisterFamily adds (or overrides) a conversion entry. Used by the
// config layer to extend the built-in Elegant table with site-specific
// element types.
func RegisterFamily(from, to string) {
	extraFamilies[from] = to
}

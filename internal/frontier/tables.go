package frontier

// curatedNext orders the phonetically common next letters used when observed
// results give too few distinct extensions, most common first.
const curatedNext = "aeiounrlstmhcdy"

// nameAffinity boosts bigrams that commonly start given names.
var nameAffinity = map[string]struct{}{
	"al": {}, "am": {}, "an": {}, "be": {}, "br": {}, "ca": {}, "ch": {},
	"da": {}, "de": {}, "el": {}, "em": {}, "er": {}, "ha": {}, "is": {},
	"ja": {}, "jo": {}, "ju": {}, "ka": {}, "la": {}, "le": {}, "li": {},
	"lu": {}, "ma": {}, "mi": {}, "na": {}, "ni": {}, "ro": {}, "sa": {},
	"so": {}, "st": {}, "th": {}, "wi": {},
}

// rareBigrams are letter pairs that essentially never occur inside names;
// their presence anywhere in a prefix marks the branch as low value.
var rareBigrams = map[string]struct{}{
	"bx": {}, "cx": {}, "dx": {}, "fq": {}, "fx": {}, "gx": {}, "hx": {},
	"jq": {}, "jx": {}, "jz": {}, "kq": {}, "kx": {}, "mx": {}, "px": {},
	"qb": {}, "qc": {}, "qd": {}, "qf": {}, "qg": {}, "qh": {}, "qj": {},
	"qk": {}, "ql": {}, "qm": {}, "qn": {}, "qp": {}, "qs": {}, "qt": {},
	"qv": {}, "qw": {}, "qx": {}, "qy": {}, "qz": {}, "sx": {}, "vq": {},
	"vx": {}, "wq": {}, "wx": {}, "xj": {}, "xk": {}, "zj": {}, "zq": {},
	"zx": {},
}

// hasRareBigram reports whether any adjacent letter pair of p is rare.
func hasRareBigram(p string) bool {
	for i := 0; i+1 < len(p); i++ {
		if _, ok := rareBigrams[p[i:i+2]]; ok {
			return true
		}
	}
	return false
}

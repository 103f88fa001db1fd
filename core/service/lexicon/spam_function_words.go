package lexicon

import "strings"

// Function words do not inflect, so the lemma lists behind the bundled
// dictionaries may not carry them. They are always known.
var (
	russianFunctionWords = wordSet(`
		а без бы в во вот да для до же за и из или к как ко ли мы на над не ни но
		о об около от по под после при про с со так то у уже что чтобы это я ты он
		она оно они вы мне тебе нам вам их его её ее им ей`)

	englishFunctionWords = wordSet(`
		a an the and or but nor so yet if then than that this these those
		of in on at to for from by with about into onto over under after before
		between through during without within upon
		i you he she it we they me him her us them my your his its our their
		is are was were be been being am do does did have has had
		will would shall should can could may might must not no yes
		as there here what which who whom whose when where why how all any some`)
)

func wordSet(words string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(words) {
		set[w] = struct{}{}
	}
	return set
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package faculty

// Faculty codes.
const (
	FLKR = "FLKR"
	FT   = "FT"
	FAME = "FAME"
	FAI  = "FAI"
	FHS  = "FHS"
	FMK  = "FMK"
)

// Faculty is a faculty code with its display name.
type Faculty struct {
	Code string
	Name string
}

// Faculties lists the university's faculties in display order.
var Faculties = []Faculty{
	{FLKR, "Faculty of Logistics and Crisis Management"},
	{FT, "Faculty of Technology"},
	{FAME, "Faculty of Management and Economics"},
	{FAI, "Faculty of Applied Informatics"},
	{FHS, "Faculty of Humanities"},
	{FMK, "Faculty of Multimedia Communications"},
}

// Department is a department or institute and the faculty it belongs to.
// Aliases are extra keywords, typically Web of Science abbreviations.
type Department struct {
	Name    string
	Faculty string
	Aliases []string
}

// Departments is the curated department table.
var Departments = []Department{
	{"Department of Logistics", FLKR, []string{"dept logist"}},
	{"Department of Crisis Management", FLKR, []string{"dept crisis management"}},
	{"Department of Population Protection", FLKR, []string{"dept populat protect"}},
	{"Department of Environmental Security", FLKR, []string{"dept environm secur"}},

	{"Department of Food Analysis and Chemistry", FT, []string{"dept food anal & chem", "dept food anal and chem"}},
	{"Department of Physics and Materials Engineering", FT, []string{"dept phys & mat engn", "dept phys and mat engn"}},
	{"Department of Chemistry", FT, []string{"dept chem"}},
	{"Department of Environmental Protection Engineering", FT, []string{"dept environm protect engn"}},
	{"Department of Polymer Engineering", FT, []string{"dept polymer engn"}},
	{"Department of Food Technology", FT, []string{"dept food technol"}},
	{"Department of Fat, Surfactant and Cosmetics Technology", FT, []string{"dept fat surfactant & cosmet technol", "dept fat surfactant and cosmet technol"}},
	{"Department of Production Engineering", FT, []string{"dept prod engn"}},

	{"Department of Economics", FAME, []string{"dept econ"}},
	{"Department of Management and Marketing", FAME, []string{"dept management & mkt", "dept management and mkt"}},
	{"Department of Business Administration", FAME, []string{"dept business adm"}},
	{"Department of Industrial Engineering and Information Systems", FAME, []string{"dept ind engn & informat syst", "dept ind engn and informat syst"}},
	{"Department of Finance and Accounting", FAME, []string{"dept finance & accounting", "dept finance and accounting"}},
	{"Department of Regional Development, Public Sector Administration and Law", FAME, []string{"dept reg dev"}},
	{"Department of Statistics and Quantitative Methods", FAME, []string{"dept stat & quantitat methods", "dept stat and quantitat methods"}},
	{"Department of Physical Training", FAME, nil},
	{"Center for Applied Economic Research", FAME, []string{"ctr appl econ res"}},

	{"Department of Informatics and Artificial Intelligence", FAI, []string{"dept informat & artificial intelligence", "dept informat and artificial intelligence"}},
	{"Department of Computer and Communication Systems", FAI, []string{"dept comp & commun syst", "dept comp and commun syst"}},
	{"Department of Automation and Control Engineering", FAI, []string{"dept automat & control engn", "dept automat and control engn"}},
	{"Department of Electronics and Measurements", FAI, []string{"dept elect & measurements", "dept elect and measurements"}},
	{"Department of Security Engineering", FAI, []string{"dept secur engn"}},
	{"Department of Mathematics", FAI, []string{"dept math"}},
	{"Department of Process Control", FAI, []string{"dept proc control"}},
	{"Centre for Security, Information and Advanced Technologies (CEBIA – Tech)", FAI, []string{"cebia tech"}},
	{"ICT Technology Park", FAI, nil},

	{"Department of Modern Languages and Literatures", FHS, []string{"dept modern languages & literatures", "dept modern languages and literatures"}},
	{"Language Centre", FHS, []string{"language ctr"}},
	{"Department of Pedagogical Sciences", FHS, []string{"dept pedag sci"}},
	{"Department of School Education", FHS, []string{"dept sch educ"}},
	{"Department of Health Care Sciences", FHS, []string{"dept hlth care sci"}},
	{"Research Centre of FHS", FHS, nil},
	{"Education Support Centre", FHS, nil},

	{"Animation", FMK, nil},
	{"Arts Management", FMK, nil},
	{"Audiovisual Arts", FMK, nil},
	{"Department of Marketing Communications", FMK, []string{"dept mkt commun"}},
	{"Department of Theoretical Studies", FMK, []string{"dept theoret studies"}},
	{"Digital Design", FMK, nil},
	{"Fashion Design", FMK, nil},
	{"Game Design", FMK, nil},
	{"Glass", FMK, nil},
	{"Graphic Design", FMK, nil},
	{"Industrial Design", FMK, nil},
	{"Jewellery Design", FMK, nil},
	{"Photography", FMK, nil},
	{"Product Design", FMK, nil},
	{"Shoe Design", FMK, nil},
	{"Spatial Design", FMK, nil},
}

// Rule assigns a faculty when any keyword occurs in the normalized text.
type Rule struct {
	Keywords []string
	Faculty  string
}

// FacultyRules is the faculty-only fallback, evaluated in order.
var FacultyRules = []Rule{
	{[]string{"fac technol", "dept polymer", "dept chem", "dept food", "dept phys", "polymer engn", "vavreckova", "nam t g masaryka"}, FT},
	{[]string{"fac management", "fac econ", "dept business", "dept econ", "dept management", "dept financ", "mostni", "mostni 5139"}, FAME},
	{[]string{"fac appl informat", "appl informat", "dept informat", "dept automat", "dept electron", "dept secur engn", "dept math", "dept proc control", "cebia"}, FAI},
	{[]string{"fac logist", "crisis management", "logist", "uherske hradiste", "dept logist"}, FLKR},
	{[]string{"fac humanities", "dept pedag", "dept hlth", "dept lang", "language centre", "humanities"}, FHS},
	{[]string{"fac multimedia", "multimedia commun", "dept marketing commun", "dept theoret"}, FMK},
}

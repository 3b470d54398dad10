package sis

const (
	DefaultLandingURL  = "http://www.virginia.edu/sis/"
	DefaultCalendarURL = "https://sisuvacs.admin.virginia.edu/psc/csprd/EMPLOYEE/PSFT_HR_CSPRD/c/SA_LEARNER_SERVICES.SSR_SSENRL_SCHD_W.GBL"
)

// Selectors locates the portal elements the scraper drives.
type Selectors struct {
	LandingURL  string `yaml:"landing_url"`
	CalendarURL string `yaml:"calendar_url"`

	SingleSignOn   string `yaml:"single_sign_on"`
	LoginForm      string `yaml:"login_form"`
	UserField      string `yaml:"user_field"`
	PassField      string `yaml:"pass_field"`
	SubmitButton   string `yaml:"submit_button"`
	Authenticated  string `yaml:"authenticated"`
	CalendarReady  string `yaml:"calendar_ready"`
	ShowInstructor string `yaml:"show_instructor"`
	ShowTitle      string `yaml:"show_title"`
	Refresh        string `yaml:"refresh"`
	NextWeek       string `yaml:"next_week"`
	WeekStart      string `yaml:"week_start"`
	CalendarBody   string `yaml:"calendar_body"`
	LoadIndicator  string `yaml:"load_indicator"`

	// LabelColumns is the number of leading non-day cells in the position row.
	LabelColumns int `yaml:"label_columns"`
	// PositionRow is the table row whose cells give the day column positions.
	PositionRow int `yaml:"position_row"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		LandingURL:     DefaultLandingURL,
		CalendarURL:    DefaultCalendarURL,
		SingleSignOn:   "[name='Netbadge']",
		LoginForm:      ".bg-white",
		UserField:      "#user",
		PassField:      "#pass",
		SubmitButton:   ".bg-white",
		Authenticated:  "#SIS_Image",
		CalendarReady:  "[id='win0divSSR_DUMMY_RECGP$0']",
		ShowInstructor: "#win0divDERIVED_CLASS_S_SHOW_INSTR [type='checkbox']",
		ShowTitle:      "#win0divDERIVED_CLASS_S_SSR_DISP_TITLE [type='checkbox']",
		Refresh:        "[id='win0divDERIVED_CLASS_S_SSR_REFRESH_CAL$38$'] [type]",
		NextWeek:       "#win0divDERIVED_CLASS_S_SSR_NEXT_WEEK [type]",
		WeekStart:      "#DERIVED_CLASS_S_START_DT",
		CalendarBody:   "[id='win0divDERIVED_CLASS_S_HTMLAREA$0'] tbody",
		LoadIndicator:  "#WAIT_win0",
		LabelColumns:   1,
		PositionRow:    0,
	}
}

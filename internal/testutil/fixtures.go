package testutil

import "github.com/nhle/po-intake/internal/model"

// ValidSubmission returns a submission that passes validation, with one
// schedule line that runs at a loss (qty 10 x unit 5 against 40).
func ValidSubmission() model.Submission {
	return model.Submission{
		Meta: model.Meta{
			ProjectName:       "Riverside Lofts",
			GeneralContractor: "Apex Construction",
			Address:           "100 River Rd",
			Owner:             "Riverside LLC",
			ApexOwner:         "J. Ortiz",
			TypeStatus:        "New",
			ProjectManager:    "K. Lee",
			ContractAmount:    250000,
			AddAltAmount:      1500,
			RetainagePct:      10,
			RequestedBy:       "K. Lee",
			CompanyName:       "Northside Framing",
			ContactName:       "Sam Park",
			Email:             "sam@northside.example",
			CellNumber:        "(555) 010-2000",
			VendorType:        "Subcontractor",
			WorkType:          "Framing",
			ImportantDates: model.ImportantDates{
				NoticeToProceed:  "2024-04-01",
				AnticipatedStart: "2024-04-15",
			},
		},
		Schedule: []model.ScheduleLine{
			{PrimeLine: "1", BudgetCode: "06-100", Description: "Rough framing", Qty: 10, Unit: 5, Scheduled: 45, ApexContractValue: 40},
		},
		Scope: []model.ScopeLine{
			{Item: "1", Description: "Framing labor", Included: true},
			{Item: "2", Description: "Lumber delivery", Excluded: true},
		},
	}
}

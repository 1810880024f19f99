package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/somo-lms/somo/core/payment"
	"github.com/somo-lms/somo/core/user"
	testutil "github.com/somo-lms/somo/tests"
)

func Test_paymentApi_checkoutAndConfirm(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Pay Teacher", "payteacher", "payteacher@test.cd", "", []string{user.RoleTeacher}, true)
	buyer := testutil.CreateUser(t, usrRepo, "Pay Buyer", "paybuyer", "paybuyer@test.cd", "", []string{user.RoleStudent}, true)
	stranger := testutil.CreateUser(t, usrRepo, "Pay Stranger", "paystranger", "paystranger@test.cd", "", []string{user.RoleStudent}, true)

	paid := testutil.CreateCourse(t, courseRepo, "Premium Course", teacher.ID, 9900)
	free := testutil.CreateCourse(t, courseRepo, "Gratis Course", teacher.ID, 0)

	token := getToken(t, buyer)

	// free courses have no checkout
	req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+free.ID+"/checkout", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("free checkout: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// checkout creates a pending payment with a client secret
	req, rec = newAuthRequest(http.MethodPost, "/api/courses/"+paid.ID+"/checkout", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: code = %v; wantCode %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var intent payment.CheckoutIntent
	if err := json.Unmarshal(rec.Body.Bytes(), &intent); err != nil {
		t.Fatalf("unmarshalling CheckoutIntent: %v", err)
	}
	if intent.ClientSecret == "" {
		t.Error("expected a client secret; got none")
	}
	if intent.Payment.Status != payment.StatusPending || intent.Payment.Amount != paid.Price {
		t.Errorf("payment = %+v; want pending for %v cents", intent.Payment, paid.Price)
	}

	// confirming before the provider settled is rejected
	req, rec = newAuthRequest(http.MethodPost, "/api/payments/"+intent.Payment.ID+"/confirm", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("early confirm: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}

	// only the payer may confirm
	req, rec = newAuthRequest(http.MethodPost, "/api/payments/"+intent.Payment.ID+"/confirm", getToken(t, stranger))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("stranger confirm: code = %v; wantCode %v", rec.Code, http.StatusForbidden)
	}

	// settle on the provider side, then confirm
	payProvider.MarkSucceeded(strings.TrimSuffix(intent.ClientSecret, "_secret"))
	req, rec = newAuthRequest(http.MethodPost, "/api/payments/"+intent.Payment.ID+"/confirm", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: code = %v; wantCode %v; body = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var pmt payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &pmt); err != nil {
		t.Fatalf("unmarshalling Payment: %v", err)
	}
	if pmt.Status != payment.StatusSucceeded {
		t.Errorf("status = %q; want %q", pmt.Status, payment.StatusSucceeded)
	}

	// a successful payment enrolls the buyer
	enrolled, err := courseSvc.IsEnrolled(req.Context(), buyer.ID, paid.ID)
	if err != nil {
		t.Fatalf("IsEnrolled(): %v", err)
	}
	if !enrolled {
		t.Error("buyer is not enrolled after a settled payment")
	}

	// the buyer's payment history lists it
	req, rec = newAuthRequest(http.MethodGet, "/api/payments", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("listing: code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	var payments []payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &payments); err != nil {
		t.Fatalf("unmarshalling []Payment: %v", err)
	}
	if len(payments) != 1 || payments[0].ID != intent.Payment.ID {
		t.Errorf("payments = %v; want the confirmed one", payments)
	}
}

func Test_paymentApi_cancel(t *testing.T) {
	teacher := testutil.CreateUser(t, usrRepo, "Cxl Teacher", "cxlteacher", "cxlteacher@test.cd", "", []string{user.RoleTeacher}, true)
	buyer := testutil.CreateUser(t, usrRepo, "Cxl Buyer", "cxlbuyer", "cxlbuyer@test.cd", "", []string{user.RoleStudent}, true)
	paid := testutil.CreateCourse(t, courseRepo, "Cancelable Course", teacher.ID, 4200)

	token := getToken(t, buyer)

	req, rec := newAuthRequest(http.MethodPost, "/api/courses/"+paid.ID+"/checkout", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: code = %v; wantCode %v; body = %v", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var intent payment.CheckoutIntent
	if err := json.Unmarshal(rec.Body.Bytes(), &intent); err != nil {
		t.Fatalf("unmarshalling CheckoutIntent: %v", err)
	}

	req, rec = newAuthRequest(http.MethodPost, "/api/payments/"+intent.Payment.ID+"/cancel", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: code = %v; wantCode %v; body = %v", rec.Code, http.StatusOK, rec.Body.String())
	}
	var pmt payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &pmt); err != nil {
		t.Fatalf("unmarshalling Payment: %v", err)
	}
	if pmt.Status != payment.StatusCanceled {
		t.Errorf("status = %q; want %q", pmt.Status, payment.StatusCanceled)
	}

	// a canceled payment cannot be confirmed
	req, rec = newAuthRequest(http.MethodPost, "/api/payments/"+intent.Payment.ID+"/confirm", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("confirm canceled: code = %v; wantCode %v", rec.Code, http.StatusBadRequest)
	}
}
